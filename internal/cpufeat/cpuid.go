package cpufeat

import (
	"github.com/klauspost/cpuid/v2"
)

var cpuidFeatures = map[string]cpuid.FeatureID{
	SSE2:       cpuid.SSE2,
	SSE41:      cpuid.SSE4,
	AVX2:       cpuid.AVX2,
	AVX512F:    cpuid.AVX512F,
	AVX512BW:   cpuid.AVX512BW,
	AVX512VL:   cpuid.AVX512VL,
	AVX512VNNI: cpuid.AVX512VNNI,
	AVXVNNI:    cpuid.AVXVNNI,
	PCLMULQDQ:  cpuid.CLMUL,
	VPCLMULQDQ: cpuid.VPCLMULQDQ,
	NEON:       cpuid.ASIMD,
	DotProd:    cpuid.ASIMDDP,
	CRC:        cpuid.CRC32,
	PMULL:      cpuid.PMULL,
}

// CPUID returns a prober backed by github.com/klauspost/cpuid/v2.
func CPUID() Prober {
	return ProberFunc(func(name string) bool {
		id, ok := cpuidFeatures[normalize(name)]
		if !ok {
			return false
		}
		return cpuid.CPU.Has(id)
	})
}
