// Package pinger runs one keep-alive tick: synthesize a fingerprint, pick a
// session, send the request and, after a 200, linger like a reader would.
package pinger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/session"
	"github.com/lukman83/keepwarm/internal/stealth"
)

// ErrNoTarget is returned when neither the pinger nor the caller names a URL.
var ErrNoTarget = errors.New("no target URL")

// Progress receives short status lines while a tick runs.
type Progress func(msg string)

type progressCtxKey struct{}

// WithProgress attaches fn to ctx. Only interactive commands set one.
func WithProgress(ctx context.Context, fn Progress) context.Context {
	return context.WithValue(ctx, progressCtxKey{}, fn)
}

// ReportProgress forwards msg to the Progress attached to ctx, if there is one.
func ReportProgress(ctx context.Context, msg string) {
	if fn, _ := ctx.Value(progressCtxKey{}).(Progress); fn != nil {
		fn(msg)
	}
}

// Pinger ties the per-tick pipeline together. Ticks are serialised so manual
// pings never overlap scheduled ones.
type Pinger struct {
	target    string
	synth     *stealth.Synthesizer
	selector  *session.Selector
	requester *Requester
	behavior  *stealth.Behavior
	log       *slog.Logger

	mu sync.Mutex
}

// New creates a pinger for the default target.
func New(target string, synth *stealth.Synthesizer, selector *session.Selector, requester *Requester, behavior *stealth.Behavior, log *slog.Logger) *Pinger {
	if log == nil {
		log = logger.Discard()
	}
	return &Pinger{
		target:    target,
		synth:     synth,
		selector:  selector,
		requester: requester,
		behavior:  behavior,
		log:       log,
	}
}

// Target returns the default target URL.
func (p *Pinger) Target() string { return p.target }

// Tick pings the default target. Network failures come back as the error so
// the scheduler can note them; they are already logged.
func (p *Pinger) Tick(ctx context.Context) error {
	return p.Ping(ctx, "").Err
}

// Ping runs one tick against target, or the default target when empty.
func (p *Pinger) Ping(ctx context.Context, target string) Outcome {
	if target == "" {
		target = p.target
	}
	if target == "" {
		return Outcome{Err: ErrNoTarget}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fp := p.synth.Generate()
	ReportProgress(ctx, "Selecting session...")
	sess := p.selector.Select(ctx, target, fp.Headers)
	// A reused session keeps its own browser, hints included.
	fp = p.synth.Rebind(fp, sess.UserAgent)

	out := p.requester.Do(ctx, sess, fp.Headers, target)
	if out.Err != nil || out.Status != http.StatusOK || p.behavior == nil {
		return out
	}

	ReportProgress(ctx, "Lingering on page...")
	if err := p.behavior.Simulate(ctx); err != nil {
		p.log.Debug("behavior interrupted", logger.Session(sess.ID), logger.Error(err))
	}
	return out
}
