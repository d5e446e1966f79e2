package pinger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/httputil"
	"github.com/lukman83/keepwarm/internal/logger"
	"github.com/lukman83/keepwarm/internal/session"
	"github.com/lukman83/keepwarm/internal/stealth"
)

const (
	// bodyLimit caps how much of a response is decoded for logging.
	bodyLimit = 64 << 10
	// snippetRunes is the length of the body preview logged per response.
	snippetRunes = 100
	// conditionalProbability is how often a known ETag is sent back.
	conditionalProbability = 0.9
	// defaultTimeout bounds one exchange, headers and body together.
	defaultTimeout = 10 * time.Second
)

// Outcome summarises one request.
type Outcome struct {
	SessionID string
	Target    string
	Status    int
	Elapsed   time.Duration
	Title     string
	Snippet   string
	UserAgent string
	Platform  string
	Cookies   int
	Visits    int
	Err       error
}

// NotModified reports whether the server answered 304.
func (o Outcome) NotModified() bool { return o.Status == http.StatusNotModified }

// Requester sends the GET for a tick and owns the per-target validators.
type Requester struct {
	transport http.RoundTripper
	store     *session.Store
	rand      chance.Source
	delay     *stealth.HumanDelay
	timeout   time.Duration
	log       *slog.Logger

	mu    sync.Mutex
	etags map[string]string
}

// NewRequester creates a requester sending through transport and persisting
// sessions to store.
func NewRequester(transport http.RoundTripper, store *session.Store, r chance.Source, log *slog.Logger) *Requester {
	if log == nil {
		log = logger.Discard()
	}
	return &Requester{
		transport: transport,
		store:     store,
		rand:      r,
		delay:     stealth.NetworkDelay(r),
		timeout:   defaultTimeout,
		log:       log,
		etags:     make(map[string]string),
	}
}

// WithSleep swaps the pre-request delay sleeper, mostly for tests.
func (q *Requester) WithSleep(fn stealth.SleepFunc) *Requester {
	q.delay.WithSleep(fn)
	return q
}

// WithTimeout sets the deadline shared by every attempt and the body read.
// Non-positive values are ignored.
func (q *Requester) WithTimeout(d time.Duration) *Requester {
	if d > 0 {
		q.timeout = d
	}
	return q
}

// ETag returns the validator remembered for target.
func (q *Requester) ETag(target string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.etags[target]
}

func (q *Requester) setETag(target, etag string) {
	if etag == "" {
		return
	}
	q.mu.Lock()
	q.etags[target] = etag
	q.mu.Unlock()
}

// Do issues a GET to target with headers using sess's cookie jar. Failures
// are logged and returned in the Outcome; Do never panics on network errors.
func (q *Requester) Do(ctx context.Context, sess *session.Session, headers http.Header, target string) Outcome {
	out := Outcome{
		SessionID: sess.ID,
		Target:    target,
		UserAgent: headers.Get("User-Agent"),
		Platform:  stealth.PlatformOf(headers.Get("User-Agent")),
		Visits:    sess.VisitCount,
	}
	ctx = stealth.WithSession(ctx, sess.ID)

	if err := q.delay.Wait(ctx); err != nil {
		out.Err = err
		return out
	}

	reqCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		out.Err = fmt.Errorf("build request: %w", err)
		q.log.Warn("invalid target", logger.Target(target), logger.Error(err))
		return out
	}
	req.Header = headers.Clone()
	if etag := q.ETag(target); etag != "" && chance.Hit(q.rand, conditionalProbability) {
		req.Header.Set("If-None-Match", etag)
	}

	ReportProgress(ctx, fmt.Sprintf("GET %s as %s", target, sess.ID))
	client := &http.Client{Transport: q.transport, Jar: sess.Jar}

	start := time.Now()
	resp, err := client.Do(req)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Err = err
		q.logFailure(sess, target, out.Elapsed, err)
		return out
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	q.setETag(target, resp.Header.Get("ETag"))

	body, err := httputil.ReadBody(resp, bodyLimit)
	out.Elapsed = time.Since(start)
	out.Cookies = sess.Jar.Len()
	_ = q.store.Save(ctx, sess.ID)

	if err != nil {
		if cerr := reqCtx.Err(); cerr != nil {
			out.Err = fmt.Errorf("read body: %w", cerr)
			q.logFailure(sess, target, out.Elapsed, out.Err)
			return out
		}
		q.log.Debug("failed to read body", logger.Session(sess.ID), logger.Error(err))
	}
	out.Title = httputil.PageTitle(body)
	out.Snippet = httputil.Snippet(body, snippetRunes)

	attrs := []any{
		logger.Session(sess.ID),
		logger.Status(out.Status),
		logger.Elapsed(out.Elapsed),
		slog.String("user_agent", out.UserAgent),
		slog.String("platform", out.Platform),
		slog.Int("cookies", out.Cookies),
		slog.Int("visits", out.Visits),
	}
	if out.NotModified() {
		q.log.Info("not modified", attrs...)
		return out
	}
	if out.Title != "" {
		attrs = append(attrs, slog.String("title", out.Title))
	}
	q.log.Info("request completed", attrs...)
	q.log.Debug("response detail",
		logger.Session(sess.ID),
		slog.Any("headers", resp.Header),
		slog.String("body", out.Snippet),
	)
	return out
}

func (q *Requester) logFailure(sess *session.Session, target string, elapsed time.Duration, err error) {
	msg := "request failed"
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		q.log.Debug("request cancelled", logger.Session(sess.ID))
		return
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg = "request timed out"
	case errors.Is(err, httputil.ErrRetriesExhausted):
		msg = "retries exhausted"
	case errors.Is(err, stealth.ErrRobotsDisallowed):
		msg = "blocked by robots.txt"
	}
	q.log.Warn(msg,
		logger.Session(sess.ID),
		logger.Target(target),
		logger.Elapsed(elapsed),
		logger.Error(err),
	)
}
