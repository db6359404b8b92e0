package services

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer inserts politeness pauses between marketplace operations
type Pacer interface {
	// Pause blocks for one pacing interval or until ctx is done
	Pause(ctx context.Context) error
}

// RandomJitterPacer pauses for a uniformly random duration in [min, max]
type RandomJitterPacer struct {
	min time.Duration
	max time.Duration
}

// NewRandomJitterPacer creates a pacer bounded by min and max. Bounds given
// in the wrong order are swapped.
func NewRandomJitterPacer(min, max time.Duration) *RandomJitterPacer {
	if max < min {
		min, max = max, min
	}
	return &RandomJitterPacer{min: min, max: max}
}

// Pause implements Pacer
func (p *RandomJitterPacer) Pause(ctx context.Context) error {
	interval := p.min
	if span := p.max - p.min; span > 0 {
		interval += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer never pauses. Used in tests and when pacing is disabled.
type NopPacer struct{}

// Pause implements Pacer
func (NopPacer) Pause(ctx context.Context) error {
	return ctx.Err()
}

var (
	_ Pacer = (*RandomJitterPacer)(nil)
	_ Pacer = NopPacer{}
)
