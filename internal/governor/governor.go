// Package governor bounds how much output a decompression request may ask
// for, before any output buffer is allocated.
package governor

import (
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultRatio is the largest accepted expansion factor.
	DefaultRatio = 2000
	// DefaultOverhead is added to the ratio bound so tiny inputs can still
	// produce a small amount of output.
	DefaultOverhead = 4096
	// DefaultMaxMemory is the absolute output cap (1 GiB).
	DefaultMaxMemory = 1 << 30
)

var (
	ErrMemoryLimit = errors.New("requested output exceeds maximum memory limit")
	ErrRatioLimit  = errors.New("requested output exceeds safety limit")
)

// Config holds the governor limits.
type Config struct {
	Ratio     uint64
	Overhead  uint64
	MaxMemory uint64 // 0 disables the absolute cap
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Ratio:     DefaultRatio,
		Overhead:  DefaultOverhead,
		MaxMemory: DefaultMaxMemory,
	}
}

// Governor enforces a Config.
type Governor struct {
	cfg Config
}

// New creates a governor.
func New(cfg Config) *Governor {
	return &Governor{cfg: cfg}
}

// Config returns the limits in force.
func (g *Governor) Config() Config {
	return g.cfg
}

// SetMaxMemory changes the absolute cap.
func (g *Governor) SetMaxMemory(n uint64) {
	g.cfg.MaxMemory = n
}

// RatioLimit is inputLen*Ratio + Overhead, saturating at MaxUint64.
func (g *Governor) RatioLimit(inputLen uint64) uint64 {
	if g.cfg.Ratio != 0 && inputLen > (math.MaxUint64-g.cfg.Overhead)/g.cfg.Ratio {
		return math.MaxUint64
	}
	return inputLen*g.cfg.Ratio + g.cfg.Overhead
}

// Limit is the largest output accepted for inputLen bytes of input:
// min(MaxMemory, inputLen*Ratio + Overhead).
func (g *Governor) Limit(inputLen uint64) uint64 {
	limit := g.RatioLimit(inputLen)
	if g.cfg.MaxMemory != 0 && g.cfg.MaxMemory < limit {
		return g.cfg.MaxMemory
	}
	return limit
}

// Check rejects a request for expected bytes of output from inputLen bytes
// of input. The absolute cap is evaluated first, then the ratio gate.
func (g *Governor) Check(inputLen, expected uint64) error {
	if g.cfg.MaxMemory != 0 && expected > g.cfg.MaxMemory {
		return errors.Wrapf(ErrMemoryLimit, "%d > %d bytes", expected, g.cfg.MaxMemory)
	}
	if limit := g.RatioLimit(inputLen); expected > limit {
		return errors.Wrapf(ErrRatioLimit, "%d > %d bytes for %d bytes of input", expected, limit, inputLen)
	}
	return nil
}
