package governor

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestRatioLimit(t *testing.T) {
	g := New(DefaultConfig())

	// 10 bytes of input allows 10*2000 + 4096 bytes of output
	assert.Equal(t, uint64(24096), g.RatioLimit(10))
	assert.NoError(t, g.Check(10, 24096))

	err := g.Check(10, 1_000_000)
	assert.True(t, errors.Is(err, ErrRatioLimit))
	assert.Contains(t, err.Error(), "safety limit")
}

func TestMemoryLimit(t *testing.T) {
	g := New(DefaultConfig())
	g.SetMaxMemory(50 * 1024 * 1024)

	// The ratio allows 1MB * 2000, the memory cap does not.
	err := g.Check(1024*1024, 100*1024*1024)
	assert.True(t, errors.Is(err, ErrMemoryLimit))
	assert.Contains(t, err.Error(), "maximum memory limit")
}

func TestMemoryLimitCheckedFirst(t *testing.T) {
	g := New(Config{Ratio: 1, Overhead: 0, MaxMemory: 100})

	// Both gates fail; the absolute cap wins.
	err := g.Check(10, 1000)
	assert.True(t, errors.Is(err, ErrMemoryLimit))
	assert.False(t, errors.Is(err, ErrRatioLimit))
}

func TestWithinLimits(t *testing.T) {
	g := New(DefaultConfig())
	g.SetMaxMemory(1024 * 1024)
	assert.NoError(t, g.Check(40, 110))
	assert.NoError(t, g.Check(0, 4096))
	assert.Error(t, g.Check(0, 4097))
}

func TestLimit(t *testing.T) {
	tests := []struct {
		cfg      Config
		input    uint64
		expected uint64
	}{
		{Config{Ratio: 2000, Overhead: 4096, MaxMemory: 0}, 10, 24096},
		{Config{Ratio: 2000, Overhead: 4096, MaxMemory: 1000}, 10, 1000},
		{Config{Ratio: 2000, Overhead: 4096, MaxMemory: 1 << 30}, 1 << 20, 1 << 30},
		{Config{Ratio: 2000, Overhead: 4096, MaxMemory: 0}, math.MaxUint64 / 2, math.MaxUint64},
		{Config{Ratio: 0, Overhead: 7, MaxMemory: 0}, 1 << 40, 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, New(tt.cfg).Limit(tt.input), "%+v input %d", tt.cfg, tt.input)
	}
}

func TestDisabledMemoryCap(t *testing.T) {
	g := New(Config{Ratio: 2000, Overhead: 4096})
	assert.NoError(t, g.Check(1<<30, 1<<40))
	assert.Equal(t, uint64(0), g.Config().MaxMemory)
}
