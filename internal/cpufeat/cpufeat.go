// Package cpufeat answers questions about the instruction-set extensions
// available on the host processor. Probers hold no state of their own and
// can be queried any number of times; caching the answers is left to callers.
package cpufeat

import (
	"sort"
	"strings"
)

// Canonical feature names understood by every Prober.
const (
	SSE2       = "sse2"
	SSE41      = "sse4.1"
	AVX2       = "avx2"
	AVX512F    = "avx512f"
	AVX512BW   = "avx512bw"
	AVX512VL   = "avx512vl"
	AVX512VNNI = "avx512vnni"
	AVXVNNI    = "avxvnni"
	PCLMULQDQ  = "pclmulqdq"
	VPCLMULQDQ = "vpclmulqdq"
	NEON       = "neon"
	DotProd    = "dotprod"
	CRC        = "crc"
	PMULL      = "pmull"
)

// Names lists every canonical feature name in a stable order.
var Names = []string{
	SSE2, SSE41, AVX2, AVX512F, AVX512BW, AVX512VL, AVX512VNNI, AVXVNNI,
	PCLMULQDQ, VPCLMULQDQ, NEON, DotProd, CRC, PMULL,
}

// Prober reports whether a named capability is present.
// Unknown names report false.
type Prober interface {
	Has(name string) bool
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(name string) bool

// Has calls f(name).
func (f ProberFunc) Has(name string) bool {
	return f(name)
}

// HasAll reports whether every name is present. An empty list is satisfied.
func HasAll(p Prober, names ...string) bool {
	for _, name := range names {
		if !p.Has(name) {
			return false
		}
	}
	return true
}

// Host returns the prober used by default: a feature is present if either
// cpuid or golang.org/x/sys/cpu reports it.
func Host() Prober {
	cpuid := CPUID()
	sys := SysCPU()
	return ProberFunc(func(name string) bool {
		return cpuid.Has(name) || sys.Has(name)
	})
}

// Static returns a prober that reports exactly the given names.
func Static(names ...string) Prober {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[normalize(name)] = struct{}{}
	}
	return ProberFunc(func(name string) bool {
		_, ok := set[normalize(name)]
		return ok
	})
}

// Without masks the given names from p.
func Without(p Prober, names ...string) Prober {
	if len(names) == 0 {
		return p
	}
	masked := make(map[string]struct{}, len(names))
	for _, name := range names {
		masked[normalize(name)] = struct{}{}
	}
	return ProberFunc(func(name string) bool {
		if _, ok := masked[normalize(name)]; ok {
			return false
		}
		return p.Has(name)
	})
}

// Feature is one line of a probe report.
type Feature struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

// Report probes every canonical name, sorted by name.
func Report(p Prober) []Feature {
	out := make([]Feature, 0, len(Names))
	for _, name := range Names {
		out = append(out, Feature{Name: name, Present: p.Has(name)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
