package cpufeat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	p := Static(AVX2, " SSE4.1 ")

	assert.True(t, p.Has(AVX2))
	assert.True(t, p.Has("AVX2"))
	assert.True(t, p.Has(SSE41))
	assert.False(t, p.Has(AVX512F))
	assert.False(t, p.Has("no-such-feature"))
}

func TestHasAll(t *testing.T) {
	p := Static(PCLMULQDQ, SSE41)

	assert.True(t, HasAll(p))
	assert.True(t, HasAll(p, PCLMULQDQ, SSE41))
	assert.False(t, HasAll(p, PCLMULQDQ, AVX2))
}

func TestWithout(t *testing.T) {
	p := Without(Static(AVX2, SSE2), "avx2")

	assert.False(t, p.Has(AVX2))
	assert.True(t, p.Has(SSE2))

	// No names returns the prober untouched
	base := Static(NEON)
	assert.True(t, Without(base).Has(NEON))
}

func TestUnknownNames(t *testing.T) {
	for _, p := range []Prober{CPUID(), SysCPU(), Host()} {
		assert.False(t, p.Has("definitely-not-a-feature"))
		assert.False(t, p.Has(""))
	}
}

func TestProbersAreIdempotent(t *testing.T) {
	p := Host()
	for _, name := range Names {
		first := p.Has(name)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, p.Has(name), name)
		}
	}
}

func TestHostIncludesSysCPU(t *testing.T) {
	host := Host()
	sys := SysCPU()
	for _, name := range Names {
		if sys.Has(name) {
			assert.True(t, host.Has(name), name)
		}
	}
}

func TestReport(t *testing.T) {
	report := Report(Static(CRC, AVX2))

	assert.Len(t, report, len(Names))
	for i := 1; i < len(report); i++ {
		assert.Less(t, report[i-1].Name, report[i].Name)
	}

	present := map[string]bool{}
	for _, f := range report {
		present[f.Name] = f.Present
	}
	assert.True(t, present[CRC])
	assert.True(t, present[AVX2])
	assert.False(t, present[NEON])
}
