package checksum

import (
	"bytes"
	"hash/adler32"
	"hash/crc32"
	"math/rand"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFeatures = []string{
	"sse2", "sse4.1", "avx2", "avx512f", "avx512bw", "avx512vl", "avx512vnni",
	"avxvnni", "pclmulqdq", "vpclmulqdq", "neon", "dotprod", "crc", "pmull",
}

type staticProber map[string]bool

func (p staticProber) Has(name string) bool { return p[name] }

func proberOf(names ...string) staticProber {
	p := staticProber{}
	for _, n := range names {
		p[n] = true
	}
	return p
}

func randomBytes(n int, seed int64) []byte {
	buf := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

func TestKnownVectors(t *testing.T) {
	assert.Equal(t, uint32(1), Adler32(1, nil))
	assert.Equal(t, uint32(2735505916), Adler32(1, bytes.Repeat([]byte{'A'}, 5552)))
	assert.Equal(t, uint32(626557501), Adler32(1, bytes.Repeat([]byte{'A'}, 5553)))
	assert.Equal(t, uint32(4027970492), Adler32(1, bytes.Repeat([]byte{'A'}, 6000)))

	assert.Equal(t, uint32(0), CRC32(0, nil))
	assert.Equal(t, uint32(0xcbf43926), CRC32(0, []byte("123456789")))
}

func TestEmptyInputIsNoop(t *testing.T) {
	for _, state := range []uint32{0, 1, 0x12345678, 0xffffffff} {
		assert.Equal(t, state, Adler32(state, nil))
		assert.Equal(t, state, CRC32(state, []byte{}))
	}
}

func TestMatchesStandardLibrary(t *testing.T) {
	data := randomBytes(20000, 1)
	for _, n := range []int{0, 1, 7, 8, 63, 64, 65, 5552, 5553, 11104, len(data)} {
		assert.Equal(t, adler32.Checksum(data[:n]), Sum(KindAdler32, data[:n]), "adler32 len %d", n)
		assert.Equal(t, crc32.ChecksumIEEE(data[:n]), Sum(KindCRC32, data[:n]), "crc32 len %d", n)
	}
}

func TestChainedFolding(t *testing.T) {
	data := randomBytes(3*5552+99, 2)

	for _, kind := range Kinds() {
		whole := Sum(kind, data)
		for _, k := range []int{0, 1, 3, 4, 8, 64, 5552, 5553, len(data)} {
			s := Update(kind, kind.Initial(), data[:k])
			s = Update(kind, s, data[k:])
			assert.Equal(t, whole, s, "%s split at %d", kind, k)
		}

		// Many small chunks
		s := kind.Initial()
		for rest := data; len(rest) > 0; {
			n := min(len(rest), 1+len(rest)%37)
			s = Update(kind, s, rest[:n])
			rest = rest[n:]
		}
		assert.Equal(t, whole, s, "%s chunked", kind)
	}
}

func TestEveryImplementationAgrees(t *testing.T) {
	data := randomBytes(3*5552+321, 3)

	// Each prefix of the feature list walks the priority order down to the
	// reference, so every accelerated variant gets selected at least once.
	engines := []*Engine{NewEngine(WithProber(proberOf()))}
	for i := range allFeatures {
		engines = append(engines, NewEngine(WithProber(proberOf(allFeatures[:i+1]...))))
		engines = append(engines, NewEngine(WithProber(proberOf(allFeatures[i]))))
	}

	seen := map[string]bool{}
	for _, e := range engines {
		seen["adler32/"+e.Implementation(KindAdler32)] = true
		seen["crc32/"+e.Implementation(KindCRC32)] = true

		for _, n := range []int{0, 1, 2, 3, 4, 5, 15, 16, 17, 31, 32, 33, 63, 64, 65, 100, 5552, 5553, len(data)} {
			require.Equal(t, adler32.Checksum(data[:n]), e.Sum(KindAdler32, data[:n]),
				"adler32 %s len %d", e.Implementation(KindAdler32), n)
			require.Equal(t, crc32.ChecksumIEEE(data[:n]), e.Sum(KindCRC32, data[:n]),
				"crc32 %s len %d", e.Implementation(KindCRC32), n)
		}
	}

	assert.True(t, seen["adler32/scalar"])
	assert.True(t, seen["crc32/slice8"])
}

func TestReferenceWithoutFeatures(t *testing.T) {
	e := NewEngine(WithProber(proberOf()))
	assert.Equal(t, "scalar", e.Implementation(KindAdler32))
	assert.Equal(t, "slice8", e.Implementation(KindCRC32))

	// Disabling everything has the same effect on a fully featured prober.
	e = NewEngine(WithProber(proberOf(allFeatures...)), WithDisabled(allFeatures...))
	assert.Equal(t, "scalar", e.Implementation(KindAdler32))
	assert.Equal(t, "slice8", e.Implementation(KindCRC32))
}

func TestAdlerUsesReferenceOnEveryHost(t *testing.T) {
	e := NewEngine(WithProber(proberOf(allFeatures...)))
	assert.Equal(t, "scalar", e.Implementation(KindAdler32))
}

func TestConcurrentFirstUse(t *testing.T) {
	var mu sync.Mutex
	calls := map[Kind][]string{}
	e := NewEngine(WithObserver(func(kind Kind, impl string) {
		mu.Lock()
		calls[kind] = append(calls[kind], impl)
		mu.Unlock()
	}))

	data := randomBytes(4096, 4)
	expectedAdler := adler32.Checksum(data)
	expectedCRC := crc32.ChecksumIEEE(data)

	const workers = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	impls := make([][2]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			assert.Equal(t, expectedAdler, e.Adler32(1, data))
			assert.Equal(t, expectedCRC, e.CRC32(0, data))
			impls[i] = [2]string{e.Implementation(KindAdler32), e.Implementation(KindCRC32)}
		}(i)
	}
	close(start)
	wg.Wait()

	for _, got := range impls {
		assert.Equal(t, impls[0], got)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls[KindAdler32], 1)
	assert.Len(t, calls[KindCRC32], 1)
	assert.Equal(t, impls[0][0], calls[KindAdler32][0])
	assert.Equal(t, impls[0][1], calls[KindCRC32][0])
}

func TestImplementationNeverChanges(t *testing.T) {
	e := NewEngine()
	first := e.Implementations()
	for i := 0; i < 100; i++ {
		e.CRC32(0, []byte{byte(i)})
		e.Adler32(1, []byte{byte(i)})
		assert.Equal(t, first, e.Implementations())
	}
}

// resetDefault installs a fresh, unsealed default engine for one test.
func resetDefault(t *testing.T) {
	t.Helper()
	saved := current.Load()
	current.Store(&defaultState{engine: NewEngine()})
	t.Cleanup(func() { current.Store(saved) })
}

func TestConfigureAfterUse(t *testing.T) {
	resetDefault(t)

	Sum(KindCRC32, []byte("resolve"))
	require.True(t, Default().Resolved())

	err := Configure(WithDisabled("avx2"))
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
}

func TestConfigureBeforeUse(t *testing.T) {
	resetDefault(t)

	require.NoError(t, Configure(WithProber(proberOf())))
	require.NoError(t, Configure(WithProber(proberOf()), WithDisabled("avx2")))

	// Handing out the engine seals it even though nothing has resolved.
	e := Default()
	assert.False(t, e.Resolved())
	assert.True(t, errors.Is(Configure(WithProber(proberOf(allFeatures...))), ErrAlreadyResolved))
	assert.Same(t, e, Default())
	assert.Equal(t, "scalar", Implementation(KindAdler32))
}

func TestConfigureDuringFirstUse(t *testing.T) {
	resetDefault(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var resolutions []string
	require.NoError(t, Configure(WithObserver(func(kind Kind, impl string) {
		mu.Lock()
		first := len(resolutions) == 0
		resolutions = append(resolutions, kind.String()+"="+impl)
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	})))

	done := make(chan uint32)
	go func() {
		done <- Adler32(1, []byte("Wikipedia"))
	}()

	<-entered
	err := Configure(WithProber(proberOf()))
	close(release)

	assert.True(t, errors.Is(err, ErrAlreadyResolved))
	assert.Equal(t, uint32(0x11e60398), <-done)

	chosen := Implementation(KindAdler32)
	Adler32(1, []byte("again"))
	assert.Equal(t, chosen, Implementation(KindAdler32))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"adler32=" + chosen}, resolutions)
}

func TestVerify(t *testing.T) {
	e := NewEngine()
	data := []byte("123456789")
	assert.True(t, e.Verify(KindCRC32, data, 0xcbf43926))
	assert.False(t, e.Verify(KindCRC32, data, 0xcbf43927))
	assert.True(t, e.Verify(KindAdler32, data, adler32.Checksum(data)))
}

func TestUpdatePanicsOnInvalidKind(t *testing.T) {
	assert.Panics(t, func() { NewEngine().Update(Kind(0), 0, nil) })
	assert.Equal(t, "", NewEngine().Implementation(Kind(9)))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in       string
		expected Kind
		ok       bool
	}{
		{"adler32", KindAdler32, true},
		{"Adler-32", KindAdler32, true},
		{"CRC32", KindCRC32, true},
		{" crc ", KindCRC32, true},
		{"crc32c", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		k, err := ParseKind(tt.in)
		if !tt.ok {
			assert.True(t, errors.Is(err, ErrUnknownKind), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, k)
	}

	assert.Equal(t, "adler32", KindAdler32.String())
	assert.Equal(t, "crc32", KindCRC32.String())
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, uint32(1), KindAdler32.Initial())
	assert.Equal(t, uint32(0), KindCRC32.Initial())
	assert.False(t, Kind(3).Valid())
}
