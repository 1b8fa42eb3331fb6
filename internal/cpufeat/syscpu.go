package cpufeat

import (
	"golang.org/x/sys/cpu"
)

// x/sys/cpu has no AVX-VNNI flag; that name is answered by cpuid only.
var sysFeatures = map[string]*bool{
	SSE2:       &cpu.X86.HasSSE2,
	SSE41:      &cpu.X86.HasSSE41,
	AVX2:       &cpu.X86.HasAVX2,
	AVX512F:    &cpu.X86.HasAVX512F,
	AVX512BW:   &cpu.X86.HasAVX512BW,
	AVX512VL:   &cpu.X86.HasAVX512VL,
	AVX512VNNI: &cpu.X86.HasAVX512VNNI,
	PCLMULQDQ:  &cpu.X86.HasPCLMULQDQ,
	VPCLMULQDQ: &cpu.X86.HasAVX512VPCLMULQDQ,
	NEON:       &cpu.ARM64.HasASIMD,
	DotProd:    &cpu.ARM64.HasASIMDDP,
	CRC:        &cpu.ARM64.HasCRC32,
	PMULL:      &cpu.ARM64.HasPMULL,
}

// SysCPU returns a prober backed by golang.org/x/sys/cpu.
func SysCPU() Prober {
	return ProberFunc(func(name string) bool {
		flag, ok := sysFeatures[normalize(name)]
		if !ok {
			return false
		}
		return *flag
	})
}
