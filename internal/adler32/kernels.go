package adler32

import (
	"github.com/rivetq/rivetsum/internal/dispatch"
)

// Kind names the checksum served by this package's resolvers.
const Kind = "adler32"

// Fallback is the portable reference, valid on every host.
func Fallback() dispatch.Candidate[Func] {
	return dispatch.Candidate[Func]{Name: "scalar", Fn: Reference}
}

// Candidates lists the accelerated kernels from most to least specialized.
// It is empty: the portable lane kernels in lanes.go fold byte by byte and
// lose to Reference, which already folds 16 bytes per step with closed-form
// weights. They stay as a model of vector folding for the tests.
func Candidates() []dispatch.Candidate[Func] {
	return nil
}
