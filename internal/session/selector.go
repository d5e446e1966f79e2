package session

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lukman83/keepwarm/internal/chance"
	"github.com/lukman83/keepwarm/internal/logger"
)

// DefaultReuseProbability is the chance an eligible session is reused rather
// than a fresh one minted.
const DefaultReuseProbability = 0.7

// Selector picks the session for each request.
type Selector struct {
	store *Store
	rand  chance.Source
	ttl   time.Duration
	reuse float64
	newID func() string
	log   *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithTTL sets how long after last use a session stays eligible.
func WithTTL(ttl time.Duration) SelectorOption {
	return func(s *Selector) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithReuseProbability sets the reuse chance, clamped to [0, 1].
func WithReuseProbability(p float64) SelectorOption {
	return func(s *Selector) { s.reuse = min(max(p, 0), 1) }
}

// WithIDGenerator replaces the default short-UUID generator.
func WithIDGenerator(fn func() string) SelectorOption {
	return func(s *Selector) { s.newID = fn }
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(l *slog.Logger) SelectorOption {
	return func(s *Selector) { s.log = l }
}

// NewSelector creates a selector over store drawing randomness from r.
func NewSelector(store *Store, r chance.Source, opts ...SelectorOption) *Selector {
	s := &Selector{
		store: store,
		rand:  r,
		ttl:   DefaultTTL,
		reuse: DefaultReuseProbability,
		newID: shortID,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Candidates returns the IDs eligible for reuse on target: those indexed under
// it, or every eligible session when none are. The fallback list is sorted so
// a scripted random source picks deterministically.
func (s *Selector) Candidates(target string) []string {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.candidatesLocked(target, s.store.now())
}

func (s *Selector) candidatesLocked(target string, now time.Time) []string {
	var ids []string
	for _, id := range s.store.index[target] {
		if sess, ok := s.store.sessions[id]; ok && sess.Eligible(now, s.ttl) {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for id, sess := range s.store.sessions {
		if sess.Eligible(now, s.ttl) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Select returns the session to use for target, reusing an eligible one or
// creating a new one, and persists it. On reuse the User-Agent header is
// replaced by the session's own so the identity stays consistent.
func (s *Selector) Select(ctx context.Context, target string, headers http.Header) *Session {
	sess, reused, visits := s.pick(target, headers)

	if reused {
		s.log.Info("reusing session", logger.Session(sess.ID), slog.Int("visits", visits))
	} else {
		s.log.Info("created session", logger.Session(sess.ID))
	}
	// Failures are logged by the store; memory stays authoritative.
	_ = s.store.Save(ctx, sess.ID)
	return sess
}

// pick chooses or mints the session under the store lock.
func (s *Selector) pick(target string, headers http.Header) (sess *Session, reused bool, visits int) {
	st := s.store
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if ids := s.candidatesLocked(target, now); len(ids) > 0 && chance.Hit(s.rand, s.reuse) {
		sess = st.sessions[chance.Pick(s.rand, ids)]
		sess.LastUsed = now
		sess.VisitCount++
		sess.TargetURL = target
		if sess.UserAgent != "" {
			headers.Set("User-Agent", sess.UserAgent)
		} else {
			sess.UserAgent = headers.Get("User-Agent")
		}
		reused = true
	} else {
		id := s.newID()
		for _, taken := st.sessions[id]; taken; _, taken = st.sessions[id] {
			id = s.newID()
		}
		sess = &Session{
			ID:         id,
			UserAgent:  headers.Get("User-Agent"),
			LastUsed:   now,
			VisitCount: 1,
			TargetURL:  target,
			Jar:        NewJar(),
		}
		st.sessions[id] = sess
	}
	st.indexLocked(target, sess.ID)
	return sess, reused, sess.VisitCount
}
