package stealth

import (
	"context"
	"log/slog"
	"time"

	"github.com/lukman83/keepwarm/internal/chance"
)

// Action is a simulated on-page interaction.
type Action string

const (
	ActionScroll Action = "scroll"
	ActionClick  Action = "click"
	ActionMove   Action = "move"
	ActionIdle   Action = "idle"
)

type behaviorSpec struct {
	action      Action
	probability float64
	min, max    time.Duration
}

var behaviors = []behaviorSpec{
	{ActionScroll, 0.7, 500 * time.Millisecond, 3 * time.Second},
	{ActionClick, 0.3, 500 * time.Millisecond, 3 * time.Second},
	{ActionMove, 0.5, 500 * time.Millisecond, 3 * time.Second},
	{ActionIdle, 0.2, 2 * time.Second, 10 * time.Second},
}

// Step is one planned interaction.
type Step struct {
	Action   Action
	Duration time.Duration
	ScrollPx int // scroll steps only
}

// Behavior pads the time spent "on the page" after a successful load.
// Nothing is rendered; the only effect is elapsed time.
type Behavior struct {
	rand  chance.Source
	sleep SleepFunc
	log   *slog.Logger
}

// NewBehavior creates a simulator that sleeps with Sleep.
func NewBehavior(r chance.Source, log *slog.Logger) *Behavior {
	return &Behavior{rand: r, sleep: Sleep, log: log}
}

// WithSleep swaps the sleeper, mostly for tests.
func (b *Behavior) WithSleep(fn SleepFunc) *Behavior {
	b.sleep = fn
	return b
}

// Plan picks 1-3 distinct behaviors and keeps those whose gate passes.
func (b *Behavior) Plan() []Step {
	n := chance.IntBetween(b.rand, 1, 3)
	var steps []Step
	for _, i := range chance.Sample(b.rand, len(behaviors), n) {
		spec := behaviors[i]
		if !chance.Hit(b.rand, spec.probability) {
			continue
		}
		step := Step{
			Action:   spec.action,
			Duration: chance.Duration(b.rand, spec.min, spec.max),
		}
		if spec.action == ActionScroll {
			step.ScrollPx = chance.IntBetween(b.rand, 300, 1500)
		}
		steps = append(steps, step)
	}
	return steps
}

// Simulate plans and then sleeps through each step.
func (b *Behavior) Simulate(ctx context.Context) error {
	for _, step := range b.Plan() {
		attrs := []any{slog.String("action", string(step.Action)), slog.Duration("for", step.Duration.Round(100*time.Millisecond))}
		if step.ScrollPx > 0 {
			attrs = append(attrs, slog.Int("px", step.ScrollPx))
		}
		b.log.Debug("simulating behavior", attrs...)
		if err := b.sleep(ctx, step.Duration); err != nil {
			return err
		}
	}
	return nil
}
