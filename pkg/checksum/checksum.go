// Package checksum computes the Adler-32 and CRC-32 values carried in zlib
// and gzip trailers.
//
// Both checksums fold bytes into a caller-owned 32-bit state:
//
//	s := uint32(1)
//	s = checksum.Adler32(s, header)
//	s = checksum.Adler32(s, body)
//
// On first use each checksum probes the processor once and binds to the
// fastest implementation it supports; every implementation produces the
// same values as the portable reference.
package checksum

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrAlreadyResolved is returned by Configure once the default engine has
// been handed out for use.
var ErrAlreadyResolved = errors.New("default checksum engine already in use")

// defaultState pairs the default engine with whether it has been handed
// out. Both change together in one compare-and-swap, so a sealed engine is
// never replaced.
type defaultState struct {
	engine *Engine
	sealed bool
}

var current atomic.Pointer[defaultState]

func init() {
	current.Store(&defaultState{engine: NewEngine()})
}

// Default returns the process-wide engine used by the package functions.
// The first call seals it: Configure fails from then on.
func Default() *Engine {
	for {
		st := current.Load()
		if st.sealed {
			return st.engine
		}
		if current.CompareAndSwap(st, &defaultState{engine: st.engine, sealed: true}) {
			return st.engine
		}
	}
}

// Configure replaces the default engine. It must run before the default
// engine is first used, typically during startup.
func Configure(opts ...Option) error {
	st := current.Load()
	if st.sealed {
		return ErrAlreadyResolved
	}
	if !current.CompareAndSwap(st, &defaultState{engine: NewEngine(opts...)}) {
		return ErrAlreadyResolved
	}
	return nil
}

// Adler32 folds p into state with the default engine.
func Adler32(state uint32, p []byte) uint32 {
	return Default().Adler32(state, p)
}

// CRC32 folds p into state with the default engine.
func CRC32(state uint32, p []byte) uint32 {
	return Default().CRC32(state, p)
}

// Update folds p into state using kind with the default engine.
func Update(kind Kind, state uint32, p []byte) uint32 {
	return Default().Update(kind, state, p)
}

// Sum returns the checksum of p from the empty-stream state.
func Sum(kind Kind, p []byte) uint32 {
	return Default().Sum(kind, p)
}

// Implementation names what kind resolves to in the default engine.
func Implementation(kind Kind) string {
	return Default().Implementation(kind)
}
