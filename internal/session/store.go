package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lukman83/keepwarm/internal/logger"
)

// Store holds sessions in memory, indexed by target URL, and mirrors each one
// to its Backend. The in-memory state is authoritative; persistence failures
// are logged and reported but never roll it back.
type Store struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	index    map[string][]string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates an empty store over b. Call Load to read existing records.
func NewStore(b Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:  b,
		log:      logger.Discard(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		index:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time { return s.now() }

// Load reads every record from the backend. Malformed records are logged and
// skipped; only a failure to enumerate the backend is returned.
func (s *Store) Load(ctx context.Context) (int, error) {
	ids, err := s.backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list session records: %w", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		data, err := s.backend.Read(ctx, id)
		if err != nil {
			s.log.Error("failed to read session record", logger.Session(id), logger.Error(err))
			continue
		}
		rec, err := DecodeRecord(data)
		if err != nil {
			s.log.Error("skipping malformed session record", logger.Session(id), logger.Error(err))
			continue
		}
		if old, ok := s.sessions[id]; ok {
			s.unindexLocked(id, old.TargetURL)
		}
		sess := fromRecord(id, rec, now)
		s.sessions[id] = sess
		s.indexLocked(sess.TargetURL, id)
		loaded++
	}
	s.log.Debug("sessions loaded", slog.Int("count", loaded), slog.Int("records", len(ids)))
	return loaded, nil
}

// Save writes the session's record, replacing the previous one.
func (s *Store) Save(ctx context.Context, id string) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	var rec Record
	if ok {
		rec = sess.toRecord()
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := EncodeRecord(rec)
	if err == nil {
		err = s.backend.Write(ctx, id, data)
	}
	if err != nil {
		s.log.Error("failed to save session", logger.Session(id), logger.Error(err))
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Delete removes a single session and its record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	if ok {
		s.dropLocked(id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.backend.Remove(ctx, id)
}

// DeleteByTarget removes every session indexed under url together with its
// record, and drops url from the index. Other targets are untouched apart
// from losing references to the deleted sessions.
func (s *Store) DeleteByTarget(ctx context.Context, url string) (int, error) {
	s.mu.Lock()
	ids := slices.Clone(s.index[url])
	for _, id := range ids {
		s.dropLocked(id)
	}
	delete(s.index, url)
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.backend.Remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(ids) > 0 {
		s.log.Info("deleted sessions for target", logger.Target(url), slog.Int("count", len(ids)))
	}
	return len(ids), errors.Join(errs...)
}

// ClearAll empties the store and purges every record in the backend,
// including ones that failed to load.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	n := len(s.sessions)
	s.sessions = make(map[string]*Session)
	s.index = make(map[string][]string)
	s.mu.Unlock()

	purged, err := s.backend.Purge(ctx)
	if err != nil {
		return n, fmt.Errorf("purge session records: %w", err)
	}
	s.log.Info("cleared all sessions", slog.Int("count", n), slog.Int("records", purged))
	return max(n, purged), nil
}

// Prune deletes sessions idle for at least maxAge.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	now := s.now()

	s.mu.Lock()
	var ids []string
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed) >= maxAge {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		s.dropLocked(id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.backend.Remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return len(ids), errors.Join(errs...)
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// List returns copies of every session, most recently used first.
func (s *Store) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Indexed returns the session IDs registered under url.
func (s *Store) Indexed(url string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.index[url])
}

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) indexLocked(url, id string) {
	if !slices.Contains(s.index[url], id) {
		s.index[url] = append(s.index[url], id)
	}
}

func (s *Store) unindexLocked(id, url string) {
	ids := slices.DeleteFunc(s.index[url], func(v string) bool { return v == id })
	if len(ids) == 0 {
		delete(s.index, url)
		return
	}
	s.index[url] = ids
}

// dropLocked removes id from the map and from every index list.
func (s *Store) dropLocked(id string) {
	delete(s.sessions, id)
	for url := range s.index {
		s.unindexLocked(id, url)
	}
}
