package checksum

import (
	"fmt"

	"github.com/rivetq/rivetsum/internal/adler32"
	"github.com/rivetq/rivetsum/internal/cpufeat"
	"github.com/rivetq/rivetsum/internal/crc32"
	"github.com/rivetq/rivetsum/internal/dispatch"
)

// Prober reports whether the host has a named capability, such as "avx2"
// or "pclmulqdq".
type Prober interface {
	Has(name string) bool
}

// Observer is told, once per checksum kind, which implementation an Engine
// resolved to.
type Observer func(kind Kind, implementation string)

// Option configures an Engine.
type Option func(*options)

type options struct {
	prober   Prober
	disable  []string
	observer Observer
}

// WithProber replaces the host capability probe.
func WithProber(p Prober) Option {
	return func(o *options) {
		o.prober = p
	}
}

// WithDisabled hides the named capabilities from the probe.
func WithDisabled(names ...string) Option {
	return func(o *options) {
		o.disable = append(o.disable, names...)
	}
}

// WithObserver registers a callback fired when a kind is first resolved.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Engine owns the per-kind implementation choice. Each choice is made on
// first use and never changes afterwards; an Engine is safe for concurrent
// use, including concurrent first use.
type Engine struct {
	adler *dispatch.Resolver[adler32.Func]
	crc   *dispatch.Resolver[crc32.Func]
}

// NewEngine creates an unresolved engine.
func NewEngine(opts ...Option) *Engine {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var prober cpufeat.Prober = cpufeat.Host()
	if o.prober != nil {
		prober = o.prober
	}
	prober = cpufeat.Without(prober, o.disable...)

	var observe dispatch.Observer
	if o.observer != nil {
		observe = func(kind, name string) {
			k, err := ParseKind(kind)
			if err != nil {
				return
			}
			o.observer(k, name)
		}
	}

	return &Engine{
		adler: dispatch.NewResolver(adler32.Kind, prober, observe, adler32.Fallback(), adler32.Candidates()...),
		crc:   dispatch.NewResolver(crc32.Kind, prober, observe, crc32.Fallback(), crc32.Candidates()...),
	}
}

// Adler32 folds p into an Adler-32 state. The empty stream is 1.
func (e *Engine) Adler32(state uint32, p []byte) uint32 {
	return e.adler.Fn()(state, p)
}

// CRC32 folds p into a CRC-32 state. The empty stream is 0; the register is
// complemented on entry and exit so calls chain.
func (e *Engine) CRC32(state uint32, p []byte) uint32 {
	return ^e.crc.Fn()(^state, p)
}

// Update folds p into state using kind. It panics on an invalid kind.
func (e *Engine) Update(kind Kind, state uint32, p []byte) uint32 {
	switch kind {
	case KindAdler32:
		return e.Adler32(state, p)
	case KindCRC32:
		return e.CRC32(state, p)
	default:
		panic(fmt.Sprintf("checksum: invalid kind %d", kind))
	}
}

// Sum folds p into the empty-stream state of kind.
func (e *Engine) Sum(kind Kind, p []byte) uint32 {
	return e.Update(kind, kind.Initial(), p)
}

// Verify reports whether p sums to expected.
func (e *Engine) Verify(kind Kind, p []byte, expected uint32) bool {
	return e.Sum(kind, p) == expected
}

// Implementation returns the name of the implementation kind resolves to,
// resolving it if necessary.
func (e *Engine) Implementation(kind Kind) string {
	switch kind {
	case KindAdler32:
		return e.adler.Name()
	case KindCRC32:
		return e.crc.Name()
	default:
		return ""
	}
}

// Implementations maps every kind name to its implementation.
func (e *Engine) Implementations() map[string]string {
	out := make(map[string]string, 2)
	for _, k := range Kinds() {
		out[k.String()] = e.Implementation(k)
	}
	return out
}

// Resolved reports whether any kind has been resolved.
func (e *Engine) Resolved() bool {
	return e.adler.Resolved() || e.crc.Resolved()
}
