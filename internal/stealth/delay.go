package stealth

import (
	"context"
	"time"

	"github.com/lukman83/keepwarm/internal/chance"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the context-aware SleepFunc used outside tests.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HumanDelay adds randomized jitter to mimic network and reaction latency.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	rand  chance.Source
	sleep SleepFunc
}

// NewHumanDelay creates a delay generator for the given range.
func NewHumanDelay(r chance.Source, min, max time.Duration) *HumanDelay {
	return &HumanDelay{MinDelay: min, MaxDelay: max, rand: r, sleep: Sleep}
}

// NetworkDelay is the 50-300ms pause taken before each request.
func NetworkDelay(r chance.Source) *HumanDelay {
	return NewHumanDelay(r, 50*time.Millisecond, 300*time.Millisecond)
}

// WithSleep swaps the sleeper, mostly for tests.
func (h *HumanDelay) WithSleep(fn SleepFunc) *HumanDelay {
	h.sleep = fn
	return h
}

// Wait sleeps for a random duration within the configured range.
func (h *HumanDelay) Wait(ctx context.Context) error {
	return h.sleep(ctx, h.RequestDelay())
}

// RequestDelay returns a random delay inside the range.
func (h *HumanDelay) RequestDelay() time.Duration {
	return chance.Duration(h.rand, h.MinDelay, h.MaxDelay)
}
