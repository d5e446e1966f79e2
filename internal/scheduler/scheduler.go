// Package scheduler drives the keep-alive loop: wait a humanised interval,
// tick, repeat until the context ends.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/stealth"
)

// ErrInvalidInterval is returned by ParseInterval for input not shaped "min-max".
var ErrInvalidInterval = errors.New("invalid interval")

const (
	shortProbability = 0.6
	jitter           = 3.0 // seconds either side
	minWait          = time.Second
)

// DefaultInterval is used when no interval, or an unparseable one, is given.
var DefaultInterval = Interval{Min: 60, Max: 240}

// Interval is a wait range in whole seconds.
type Interval struct {
	Min int
	Max int
}

func (i Interval) String() string { return fmt.Sprintf("%d-%d", i.Min, i.Max) }

// Mid is the boundary between the short and long buckets.
func (i Interval) Mid() int { return (i.Min + i.Max) / 2 }

// ParseInterval reads "min-max" seconds. min is raised to 1, and a max below
// min becomes min+60.
func ParseInterval(s string) (Interval, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	minS, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	maxS, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	if minS < 1 {
		minS = 1
	}
	if maxS < minS {
		maxS = minS + 60
	}
	return Interval{Min: minS, Max: maxS}, nil
}

// Ticker performs one unit of work per scheduled wake-up.
type Ticker interface {
	Tick(ctx context.Context) error
}

// TickFunc adapts a function to Ticker.
type TickFunc func(ctx context.Context) error

func (f TickFunc) Tick(ctx context.Context) error { return f(ctx) }

// Scheduler alternates between Waiting and Requesting.
type Scheduler struct {
	ticker   Ticker
	interval Interval
	rand     chance.Source
	sleep    stealth.SleepFunc
	log      *slog.Logger
}

// New creates a scheduler calling ticker on iv.
func New(ticker Ticker, iv Interval, r chance.Source, log *slog.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{ticker: ticker, interval: iv, rand: r, sleep: stealth.Sleep, log: log}
}

// WithSleep swaps the sleeper, mostly for tests.
func (s *Scheduler) WithSleep(fn stealth.SleepFunc) *Scheduler {
	s.sleep = fn
	return s
}

// Interval returns the configured range.
func (s *Scheduler) Interval() Interval { return s.interval }

// NextWait draws the next pause. Most waits land in the lower half of the
// range, the rest in the upper half, each with up to 3s of jitter.
func (s *Scheduler) NextWait() time.Duration {
	iv := s.interval
	var base int
	if chance.Hit(s.rand, shortProbability) {
		base = chance.IntBetween(s.rand, iv.Min, iv.Mid())
	} else {
		base = chance.IntBetween(s.rand, iv.Mid(), iv.Max)
	}
	secs := float64(base) + chance.Between(s.rand, -jitter, jitter)
	wait := time.Duration(math.Round(secs * float64(time.Second)))
	return max(wait, minWait)
}

// Run loops until ctx is cancelled, then returns nil. A failing or panicking
// tick is logged and the loop carries on.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", slog.String("interval", s.interval.String()))
	for {
		wait := s.NextWait()
		s.log.Info("waiting", slog.Duration("wait", wait.Round(100*time.Millisecond)))
		if err := s.sleep(ctx, wait); err != nil {
			s.log.Info("scheduler stopped", logger.Error(context.Cause(ctx)))
			return nil
		}
		if err := s.tick(ctx); err != nil && ctx.Err() == nil {
			s.log.Debug("tick finished with error", logger.Error(err))
		}
		if ctx.Err() != nil {
			s.log.Info("scheduler stopped", logger.Error(context.Cause(ctx)))
			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return s.ticker.Tick(ctx)
}
