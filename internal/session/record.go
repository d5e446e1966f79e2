package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordVersion is the schema version written by this build. Version 0 is
// the legacy shape that carried only cookies and url.
const RecordVersion = 1

var (
	ErrNotFound        = errors.New("session not found")
	ErrMalformedRecord = errors.New("malformed session record")
)

// Record is the persisted form of a Session.
type Record struct {
	Version    int            `json:"version"`
	URL        string         `json:"url"`
	UserAgent  string         `json:"user_agent,omitempty"`
	LastUsed   *time.Time     `json:"last_used,omitempty"`
	VisitCount int            `json:"visit_count,omitempty"`
	Cookies    []CookieRecord `json:"cookies"`
}

// CookieRecord is one persisted cookie.
type CookieRecord struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Domain  string     `json:"domain"`
	Path    string     `json:"path"`
	Expires *time.Time `json:"expires,omitempty"`
	Secure  bool       `json:"secure,omitempty"`
}

// EncodeRecord serialises a record.
func EncodeRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord parses and validates a record.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if r.Version < 0 || r.Version > RecordVersion {
		return Record{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedRecord, r.Version)
	}
	if r.VisitCount < 0 {
		return Record{}, fmt.Errorf("%w: negative visit count", ErrMalformedRecord)
	}
	for i, c := range r.Cookies {
		if c.Name == "" {
			return Record{}, fmt.Errorf("%w: cookie %d has no name", ErrMalformedRecord, i)
		}
	}
	return r, nil
}

// toRecord snapshots s. The caller holds the store lock.
func (s *Session) toRecord() Record {
	last := s.LastUsed.UTC()
	r := Record{
		Version:    RecordVersion,
		URL:        s.TargetURL,
		UserAgent:  s.UserAgent,
		LastUsed:   &last,
		VisitCount: s.VisitCount,
		Cookies:    []CookieRecord{},
	}
	for _, c := range s.Jar.All() {
		cr := CookieRecord{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path, Secure: c.Secure}
		if !c.Expires.IsZero() {
			exp := c.Expires.UTC()
			cr.Expires = &exp
		}
		r.Cookies = append(r.Cookies, cr)
	}
	return r
}

// fromRecord rebuilds a session. Legacy records have no usage metadata, so
// they are treated as used at load time.
func fromRecord(id string, r Record, now time.Time) *Session {
	s := &Session{
		ID:         id,
		TargetURL:  r.URL,
		UserAgent:  r.UserAgent,
		VisitCount: r.VisitCount,
		LastUsed:   now,
		Jar:        NewJar(),
	}
	if r.LastUsed != nil {
		s.LastUsed = *r.LastUsed
	}

	cookies := make([]Cookie, 0, len(r.Cookies))
	for _, c := range r.Cookies {
		ck := Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path, Secure: c.Secure}
		if c.Expires != nil {
			ck.Expires = *c.Expires
		}
		cookies = append(cookies, ck)
	}
	s.Jar.Restore(cookies)
	return s
}
