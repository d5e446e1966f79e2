package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/lukman83/keepwarm/internal/models"
	"github.com/lukman83/keepwarm/internal/pinger"
	"github.com/lukman83/keepwarm/internal/session"
)

// app is the wired core shared by every command. It also backs the MCP tools.
type app struct {
	log       *slog.Logger
	logCloser io.Closer
	store     *session.Store
	pinger    *pinger.Pinger
	ttl       time.Duration
}

func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.logCloser.Close())
}

func (a *app) Sessions() []models.SessionSummary {
	return models.SummarizeSessions(a.store.List(), a.store.Now(), a.ttl)
}

func (a *app) DeleteTarget(ctx context.Context, url string) (int, error) {
	return a.store.DeleteByTarget(ctx, url)
}

func (a *app) ClearAll(ctx context.Context) (int, error) {
	return a.store.ClearAll(ctx)
}

func (a *app) Ping(ctx context.Context, url string) models.TickReport {
	return models.ReportFromOutcome(a.pinger.Ping(ctx, url))
}
