// Package models holds the JSON views shared by the CLI and the MCP tools.
package models

import (
	"time"

	"github.com/lukman83/keepwarm/internal/pinger"
	"github.com/lukman83/keepwarm/internal/session"
	"github.com/lukman83/keepwarm/internal/stealth"
)

type SessionSummary struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	LastUsed   time.Time `json:"last_used"`
	VisitCount int       `json:"visit_count"`
	Cookies    int       `json:"cookies"`
	Stale      bool      `json:"stale,omitempty"`
}

type TickReport struct {
	Session     string `json:"session,omitempty"`
	Target      string `json:"target"`
	Status      int    `json:"status,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	Title       string `json:"title,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Cookies     int    `json:"cookies"`
	Visits      int    `json:"visits"`
	NotModified bool   `json:"not_modified,omitempty"`
	Error       string `json:"error,omitempty"`
}

type PurgeResult struct {
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Deleted int    `json:"deleted"`
}

// SummarizeSession flags sessions no longer eligible for reuse at now.
func SummarizeSession(s session.Session, now time.Time, ttl time.Duration) SessionSummary {
	sum := SessionSummary{
		ID:         s.ID,
		Target:     s.TargetURL,
		UserAgent:  s.UserAgent,
		LastUsed:   s.LastUsed,
		VisitCount: s.VisitCount,
		Stale:      !s.Eligible(now, ttl),
	}
	if s.UserAgent != "" {
		sum.Platform = stealth.PlatformOf(s.UserAgent)
	}
	if s.Jar != nil {
		sum.Cookies = s.Jar.Len()
	}
	return sum
}

func SummarizeSessions(list []session.Session, now time.Time, ttl time.Duration) []SessionSummary {
	out := make([]SessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, SummarizeSession(s, now, ttl))
	}
	return out
}

func ReportFromOutcome(o pinger.Outcome) TickReport {
	r := TickReport{
		Session:     o.SessionID,
		Target:      o.Target,
		Status:      o.Status,
		ElapsedMS:   o.Elapsed.Milliseconds(),
		Title:       o.Title,
		UserAgent:   o.UserAgent,
		Platform:    o.Platform,
		Cookies:     o.Cookies,
		Visits:      o.Visits,
		NotModified: o.NotModified(),
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}
