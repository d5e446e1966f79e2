package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/scheduler"
)

func TestParseInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    scheduler.Interval
		wantErr bool
	}{
		{in: "60-240", want: scheduler.Interval{Min: 60, Max: 240}},
		{in: " 5 - 10 ", want: scheduler.Interval{Min: 5, Max: 10}},
		{in: "0-10", want: scheduler.Interval{Min: 1, Max: 10}},
		{in: "100-50", want: scheduler.Interval{Min: 100, Max: 160}},
		{in: "30-30", want: scheduler.Interval{Min: 30, Max: 30}},
		{in: "abc", wantErr: true},
		{in: "10", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := scheduler.ParseInterval(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, scheduler.ErrInvalidInterval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextWaitBounds(t *testing.T) {
	t.Parallel()

	intervals := []scheduler.Interval{{Min: 1, Max: 2}, {Min: 60, Max: 240}, {Min: 5, Max: 5}}
	for _, iv := range intervals {
		s := scheduler.New(nil, iv, chance.New(), nil)
		lower := 0
		const n = 5000
		for range n {
			w := s.NextWait()
			require.GreaterOrEqual(t, w, time.Second)
			require.LessOrEqual(t, w, time.Duration(iv.Max+3)*time.Second)
			if w < time.Duration(iv.Mid())*time.Second {
				lower++
			}
		}
		if iv == scheduler.DefaultInterval {
			// Roughly 60% short waits.
			assert.InDelta(t, 0.6, float64(lower)/n, 0.05)
		}
	}
}

func TestNextWaitBuckets(t *testing.T) {
	t.Parallel()
	iv := scheduler.Interval{Min: 60, Max: 240}

	// Short bucket, lowest draw, jitter at -3s.
	short := scheduler.New(nil, iv, &chance.Fixed{Floats: []float64{0.1, 0}, Ints: []int{0}}, nil)
	assert.Equal(t, 57*time.Second, short.NextWait())

	// Long bucket, highest draw, no jitter.
	long := scheduler.New(nil, iv, &chance.Fixed{Floats: []float64{0.9, 0.5}, Ints: []int{1000}}, nil)
	assert.Equal(t, 240*time.Second, long.NextWait())

	// Floor at one second.
	tiny := scheduler.New(nil, scheduler.Interval{Min: 1, Max: 1}, &chance.Fixed{Floats: []float64{0.1, 0}}, nil)
	assert.Equal(t, time.Second, tiny.NextWait())
}

func instant(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	ticker := scheduler.TickFunc(func(context.Context) error {
		ticks++
		if ticks == 3 {
			cancel()
		}
		return nil
	})

	s := scheduler.New(ticker, scheduler.DefaultInterval, chance.New(), logger.Discard()).WithSleep(instant)
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 3, ticks)
}

func TestRunSurvivesPanicsAndErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticks := 0
	ticker := scheduler.TickFunc(func(context.Context) error {
		ticks++
		switch ticks {
		case 1:
			panic("boom")
		case 2:
			return errors.New("connection refused")
		case 3:
			var m map[string]int
			m["x"] = 1
		default:
			cancel()
		}
		return nil
	})

	s := scheduler.New(ticker, scheduler.DefaultInterval, chance.New(), logger.Discard()).WithSleep(instant)
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 4, ticks)
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	s := scheduler.New(scheduler.TickFunc(func(context.Context) error {
		called = true
		return nil
	}), scheduler.DefaultInterval, chance.New(), nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, called)
}
