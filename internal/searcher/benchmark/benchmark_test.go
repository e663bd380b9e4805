package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stepClock advances by a scripted duration on every call.
type stepClock struct {
	now   time.Time
	steps []time.Duration
	i     int
}

func (c *stepClock) Now() time.Time {
	if c.i > 0 && c.i-1 < len(c.steps) {
		c.now = c.now.Add(c.steps[c.i-1])
	}
	c.i++
	return c.now
}

func TestNewTiming(t *testing.T) {
	tm := NewTiming(2*time.Millisecond, 6*time.Millisecond)
	if tm.ParallelMs != 2 || tm.SequentialMs != 6 || tm.Speedup != 3 {
		t.Fatalf("timing = %+v", tm)
	}
}

func TestNewTimingZeroParallel(t *testing.T) {
	tm := NewTiming(0, 5*time.Millisecond)
	if tm.Speedup != 1.0 {
		t.Fatalf("speedup with zero parallel time = %v, want 1.0", tm.Speedup)
	}
}

func TestCompareReturnsPrimaryResult(t *testing.T) {
	// calls: start primary, end primary (+4ms), start seq (+0), end seq (+8ms)
	clock := &stepClock{now: time.Unix(0, 0), steps: []time.Duration{4 * time.Millisecond, 0, 8 * time.Millisecond}}
	h := NewWithClock(clock.Now)

	var modes []Mode
	got, timing, err := Compare(context.Background(), h, Parallel, func(ctx context.Context, m Mode) (string, error) {
		modes = append(modes, m)
		return m.String(), nil
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got != "parallel" {
		t.Fatalf("result = %q, want primary result", got)
	}
	if len(modes) != 2 || modes[0] != Parallel || modes[1] != Sequential {
		t.Fatalf("modes = %v", modes)
	}
	if timing.ParallelMs != 4 || timing.SequentialMs != 8 || timing.Speedup != 2 {
		t.Fatalf("timing = %+v", timing)
	}
}

func TestCompareAlwaysRerunsSequential(t *testing.T) {
	calls := 0
	_, _, err := Compare(context.Background(), New(), Sequential, func(ctx context.Context, m Mode) (int, error) {
		calls++
		if m != Sequential {
			t.Fatalf("unexpected mode %v", m)
		}
		return calls, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected two runs, got %d", calls)
	}
}

func TestComparePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := Compare(context.Background(), New(), Parallel, func(ctx context.Context, m Mode) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestModeString(t *testing.T) {
	if Sequential.String() != "sequential" || Parallel.String() != "parallel" {
		t.Fatal("unexpected mode names")
	}
	if Mode(7).String() != "mode(7)" {
		t.Fatalf("got %q", Mode(7).String())
	}
}
