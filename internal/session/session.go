// Package session keeps the pool of reusable browser identities: cookie jars
// plus the user-agent and usage metadata that make repeated requests look
// like a handful of returning visitors.
//
// A Store holds sessions in memory, indexed by target URL, and mirrors each
// one to a Backend record. A Selector decides per request whether to reuse an
// eligible session or mint a new one.
package session

import "time"

// DefaultTTL is how long a session stays eligible for reuse after its last use.
const DefaultTTL = 24 * time.Hour

// Session is a reusable client identity.
type Session struct {
	ID         string
	UserAgent  string
	LastUsed   time.Time
	VisitCount int
	TargetURL  string
	Jar        *Jar
}

// Eligible reports whether s can be reused at now under ttl.
func (s *Session) Eligible(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUsed) < ttl
}

// snapshot copies the scalar fields; the Jar is shared and safe to use.
func (s *Session) snapshot() Session {
	return *s
}
