// Package benchmark times the same query through the primary execution path
// and through a forced sequential re-run, and reports the speedup.
//
// The sequential re-run happens even when the primary path was already
// sequential. Its result is discarded; only the timing is kept, so callers
// always get a comparable pair of numbers.
package benchmark

import (
	"context"
	"fmt"
	"time"
)

// Mode selects how a multi-word query is executed.
type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Timing is the wall-clock comparison reported with every search.
type Timing struct {
	ParallelMs   float64 `json:"parallel_ms"`
	SequentialMs float64 `json:"sequential_ms"`
	Speedup      float64 `json:"speedup"`
}

// NewTiming converts two elapsed durations into a Timing. Speedup is
// sequential/parallel, or 1.0 when the parallel time is zero.
func NewTiming(parallel, sequential time.Duration) Timing {
	t := Timing{
		ParallelMs:   durationMs(parallel),
		SequentialMs: durationMs(sequential),
		Speedup:      1.0,
	}
	if t.ParallelMs > 0 {
		t.Speedup = t.SequentialMs / t.ParallelMs
	}
	return t
}

func durationMs(d time.Duration) float64 {
	return d.Seconds() * 1000
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Harness runs comparative timings.
type Harness struct {
	now Clock
}

// New returns a Harness using the wall clock.
func New() *Harness {
	return &Harness{now: time.Now}
}

// NewWithClock returns a Harness reading time from now.
func NewWithClock(now Clock) *Harness {
	return &Harness{now: now}
}

func (h *Harness) since(start time.Time) time.Duration {
	return h.now().Sub(start)
}

// Compare runs run once in the primary mode and once in Sequential mode. It
// returns the primary result and the Timing; the primary elapsed time is
// reported as the parallel figure.
func Compare[T any](ctx context.Context, h *Harness, primary Mode, run func(ctx context.Context, mode Mode) (T, error)) (T, Timing, error) {
	var zero T
	start := h.now()
	result, err := run(ctx, primary)
	if err != nil {
		return zero, Timing{}, fmt.Errorf("%s run: %w", primary, err)
	}
	primaryElapsed := h.since(start)

	start = h.now()
	if _, err := run(ctx, Sequential); err != nil {
		return zero, Timing{}, fmt.Errorf("sequential benchmark run: %w", err)
	}
	sequentialElapsed := h.since(start)

	return result, NewTiming(primaryElapsed, sequentialElapsed), nil
}
