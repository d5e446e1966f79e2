package session

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cookie is the persisted form of one jar entry.
type Cookie struct {
	Name    string
	Value   string
	Domain  string
	Path    string
	Expires time.Time // zero for session cookies
	Secure  bool
}

func (c Cookie) key() string {
	return c.Domain + ";" + c.Path + ";" + c.Name
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Jar is an http.CookieJar that, unlike net/http/cookiejar, can enumerate
// every cookie it holds so sessions can be persisted and restored.
type Jar struct {
	mu      sync.RWMutex
	cookies map[string]Cookie
	now     func() time.Time
}

// NewJar creates an empty jar.
func NewJar() *Jar {
	return &Jar{cookies: make(map[string]Cookie), now: time.Now}
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	host := canonicalHost(u.Hostname())
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, hc := range cookies {
		if hc == nil || hc.Name == "" {
			continue
		}
		c := Cookie{
			Name:   hc.Name,
			Value:  hc.Value,
			Domain: canonicalHost(hc.Domain),
			Path:   hc.Path,
			Secure: hc.Secure,
		}
		if c.Domain == "" {
			c.Domain = host
		} else if !domainMatch(host, c.Domain) {
			continue
		}
		if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
			c.Path = defaultPath(u.Path)
		}

		switch {
		case hc.MaxAge < 0:
			delete(j.cookies, c.key())
			continue
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case !hc.Expires.IsZero():
			c.Expires = hc.Expires.UTC()
		}
		if c.expired(now) {
			delete(j.cookies, c.key())
			continue
		}
		j.cookies[c.key()] = c
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	host := canonicalHost(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}
	now := j.now()
	https := u.Scheme == "https"

	j.mu.RLock()
	defer j.mu.RUnlock()

	var matched []Cookie
	for _, c := range j.cookies {
		if c.expired(now) || (c.Secure && !https) {
			continue
		}
		if c.Domain != "" && !domainMatch(host, c.Domain) {
			continue
		}
		if !pathMatch(path, c.Path) {
			continue
		}
		matched = append(matched, c)
	}

	// Longer paths first, then by name for a stable header.
	sort.Slice(matched, func(a, b int) bool {
		if len(matched[a].Path) != len(matched[b].Path) {
			return len(matched[a].Path) > len(matched[b].Path)
		}
		return matched[a].Name < matched[b].Name
	})

	out := make([]*http.Cookie, len(matched))
	for i, c := range matched {
		out[i] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return out
}

// All returns every unexpired cookie ordered by domain, path and name.
func (j *Jar) All() []Cookie {
	now := j.now()

	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.expired(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].key() < out[b].key() })
	return out
}

// Len reports the number of stored cookies.
func (j *Jar) Len() int {
	return len(j.All())
}

// Restore loads persisted cookies, replacing entries with the same key.
func (j *Jar) Restore(cookies []Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		c.Domain = canonicalHost(c.Domain)
		if c.Path == "" {
			c.Path = "/"
		}
		j.cookies[c.key()] = c
	}
}

func canonicalHost(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "."))
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
