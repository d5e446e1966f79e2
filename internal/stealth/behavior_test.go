package stealth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/stealth"
)

func TestBehaviorPlan(t *testing.T) {
	t.Parallel()

	t.Run("forced selection", func(t *testing.T) {
		t.Parallel()
		b := stealth.NewBehavior(&chance.Fixed{Floats: []float64{0}, Ints: []int{2}}, logger.Discard())

		steps := b.Plan()
		require.Len(t, steps, 3)
		assert.Equal(t, stealth.ActionMove, steps[0].Action)
		assert.Equal(t, stealth.ActionIdle, steps[1].Action)
		assert.Equal(t, stealth.ActionClick, steps[2].Action)
		assert.Equal(t, 500*time.Millisecond, steps[0].Duration)
		assert.Equal(t, 2*time.Second, steps[1].Duration)
	})

	t.Run("gates can reject everything", func(t *testing.T) {
		t.Parallel()
		b := stealth.NewBehavior(&chance.Fixed{Floats: []float64{0.99}, Ints: []int{2}}, logger.Discard())
		assert.Empty(t, b.Plan())
	})

	t.Run("ranges hold", func(t *testing.T) {
		t.Parallel()
		b := stealth.NewBehavior(chance.New(), logger.Discard())
		for i := 0; i < 500; i++ {
			steps := b.Plan()
			require.LessOrEqual(t, len(steps), 3)
			seen := map[stealth.Action]bool{}
			for _, s := range steps {
				require.False(t, seen[s.Action], "duplicate action %s", s.Action)
				seen[s.Action] = true
				if s.Action == stealth.ActionIdle {
					require.GreaterOrEqual(t, s.Duration, 2*time.Second)
					require.Less(t, s.Duration, 10*time.Second)
				} else {
					require.GreaterOrEqual(t, s.Duration, 500*time.Millisecond)
					require.Less(t, s.Duration, 3*time.Second)
				}
				if s.Action == stealth.ActionScroll {
					require.GreaterOrEqual(t, s.ScrollPx, 300)
					require.LessOrEqual(t, s.ScrollPx, 1500)
				}
			}
		}
	})
}

func TestBehaviorSimulate(t *testing.T) {
	t.Parallel()

	t.Run("sleeps each step", func(t *testing.T) {
		t.Parallel()
		var slept []time.Duration
		b := stealth.NewBehavior(&chance.Fixed{Floats: []float64{0}, Ints: []int{2}}, logger.Discard()).
			WithSleep(func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			})

		require.NoError(t, b.Simulate(context.Background()))
		assert.Equal(t, []time.Duration{500 * time.Millisecond, 2 * time.Second, 500 * time.Millisecond}, slept)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := stealth.NewBehavior(&chance.Fixed{Floats: []float64{0}}, logger.Discard())
		assert.ErrorIs(t, b.Simulate(ctx), context.Canceled)
	})
}

func TestHumanDelay(t *testing.T) {
	t.Parallel()

	var got time.Duration
	d := stealth.NetworkDelay(&chance.Fixed{Floats: []float64{0.5}}).
		WithSleep(func(_ context.Context, d time.Duration) error {
			got = d
			return nil
		})
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 175*time.Millisecond, got)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, stealth.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, stealth.Sleep(context.Background(), time.Millisecond))
}
