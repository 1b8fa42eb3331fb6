// Package dispatch picks one implementation out of a closed set of
// equivalent variants based on host capabilities, and remembers the pick
// for the lifetime of the process.
package dispatch

import (
	"sync/atomic"

	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rs/zerolog/log"
)

// Candidate is one implementation variant together with the capabilities
// it needs.
type Candidate[F any] struct {
	Name     string
	Requires []string
	Fn       F
}

// Supported reports whether every required capability is present.
func (c Candidate[F]) Supported(p cpufeat.Prober) bool {
	return cpufeat.HasAll(p, c.Requires...)
}

// Observer is told about a resolution once it has been published.
type Observer func(kind, name string)

// Select returns the first supported candidate in priority order, or the
// fallback when none qualifies.
func Select[F any](p cpufeat.Prober, fallback Candidate[F], candidates ...Candidate[F]) Candidate[F] {
	for _, c := range candidates {
		if c.Supported(p) {
			return c
		}
	}
	return fallback
}

// Resolver is unresolved until the first call to Get and resolved forever
// after. Concurrent first calls may each run Select, but only the first
// published result is ever returned.
type Resolver[F any] struct {
	kind       string
	prober     cpufeat.Prober
	fallback   Candidate[F]
	candidates []Candidate[F]
	observer   Observer
	choice     atomic.Pointer[Candidate[F]]
}

// NewResolver creates an unresolved resolver. Candidates are listed from
// most to least specialized; fallback must have no requirements.
func NewResolver[F any](kind string, prober cpufeat.Prober, observer Observer, fallback Candidate[F], candidates ...Candidate[F]) *Resolver[F] {
	return &Resolver[F]{
		kind:       kind,
		prober:     prober,
		fallback:   fallback,
		candidates: candidates,
		observer:   observer,
	}
}

// Get returns the selected candidate, resolving it on first use.
func (r *Resolver[F]) Get() Candidate[F] {
	if c := r.choice.Load(); c != nil {
		return *c
	}
	return *r.resolve()
}

// Fn is shorthand for Get().Fn.
func (r *Resolver[F]) Fn() F {
	if c := r.choice.Load(); c != nil {
		return c.Fn
	}
	return r.resolve().Fn
}

// Name is shorthand for Get().Name.
func (r *Resolver[F]) Name() string {
	return r.Get().Name
}

// Resolved reports whether a choice has been published.
func (r *Resolver[F]) Resolved() bool {
	return r.choice.Load() != nil
}

// Kind returns the checksum kind this resolver serves.
func (r *Resolver[F]) Kind() string {
	return r.kind
}

// Candidates returns every variant, accelerated first and fallback last,
// whether or not the host supports it.
func (r *Resolver[F]) Candidates() []Candidate[F] {
	out := make([]Candidate[F], 0, len(r.candidates)+1)
	out = append(out, r.candidates...)
	return append(out, r.fallback)
}

func (r *Resolver[F]) resolve() *Candidate[F] {
	selected := Select(r.prober, r.fallback, r.candidates...)
	if !r.choice.CompareAndSwap(nil, &selected) {
		// Lost the race; adopt what the winner published.
		return r.choice.Load()
	}

	log.Debug().
		Str("kind", r.kind).
		Str("implementation", selected.Name).
		Strs("requires", selected.Requires).
		Msg("checksum implementation resolved")

	if r.observer != nil {
		r.observer(r.kind, selected.Name)
	}
	return &selected
}
