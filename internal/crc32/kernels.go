package crc32

import (
	stdcrc32 "hash/crc32"

	"github.com/rivetq/rivetsum/internal/dispatch"
)

// Kind names the checksum served by this package's resolvers.
const Kind = "crc32"

// Fallback is the portable reference, valid on every host.
func Fallback() dispatch.Candidate[Func] {
	return dispatch.Candidate[Func]{Name: "slice8", Fn: Reference}
}

// Candidates lists the accelerated kernels for this architecture from most
// to least specialized. It may be empty.
func Candidates() []dispatch.Candidate[Func] {
	return accelerated()
}

// runtimeAsm folds p with the toolchain's assembly kernels (carry-less
// multiply on amd64, CRC32 instructions on arm64). hash/crc32 complements
// internally, so the raw register is flipped around the call.
func runtimeAsm(crc uint32, p []byte) uint32 {
	return ^stdcrc32.Update(^crc, stdcrc32.IEEETable, p)
}
