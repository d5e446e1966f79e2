package session_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/session"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func names(cookies []*http.Cookie) []string {
	out := make([]string, len(cookies))
	for i, c := range cookies {
		out[i] = c.Name
	}
	return out
}

func TestJar(t *testing.T) {
	t.Parallel()

	t.Run("host cookie round trip", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		u := mustURL(t, "https://app.example.com/login")
		j.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "abc"}})

		got := j.Cookies(mustURL(t, "https://app.example.com/"))
		require.Len(t, got, 1)
		assert.Equal(t, "abc", got[0].Value)
		assert.Empty(t, j.Cookies(mustURL(t, "https://other.example.com/")))
	})

	t.Run("domain cookie matches subdomains", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		j.SetCookies(mustURL(t, "https://www.example.com/"), []*http.Cookie{{Name: "d", Value: "1", Domain: ".example.com", Path: "/"}})

		assert.Len(t, j.Cookies(mustURL(t, "https://api.example.com/")), 1)
		assert.Empty(t, j.Cookies(mustURL(t, "https://example.org/")))
	})

	t.Run("foreign domain rejected", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		j.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{{Name: "x", Value: "1", Domain: "evil.com"}})
		assert.Equal(t, 0, j.Len())
	})

	t.Run("path scoping and order", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		u := mustURL(t, "https://example.com/")
		j.SetCookies(u, []*http.Cookie{
			{Name: "root", Value: "1", Path: "/"},
			{Name: "deep", Value: "2", Path: "/app"},
		})

		assert.Equal(t, []string{"deep", "root"}, names(j.Cookies(mustURL(t, "https://example.com/app/x"))))
		assert.Equal(t, []string{"root"}, names(j.Cookies(mustURL(t, "https://example.com/apple"))))
	})

	t.Run("secure cookies need https", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		j.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{{Name: "s", Value: "1", Path: "/", Secure: true}})
		assert.Empty(t, j.Cookies(mustURL(t, "http://example.com/")))
		assert.Len(t, j.Cookies(mustURL(t, "https://example.com/")), 1)
	})

	t.Run("max-age negative deletes", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		u := mustURL(t, "https://example.com/")
		j.SetCookies(u, []*http.Cookie{{Name: "sid", Value: "1", Path: "/"}})
		j.SetCookies(u, []*http.Cookie{{Name: "sid", Path: "/", MaxAge: -1}})
		assert.Equal(t, 0, j.Len())
	})

	t.Run("expired cookies are dropped", func(t *testing.T) {
		t.Parallel()
		j := session.NewJar()
		j.Restore([]session.Cookie{
			{Name: "old", Value: "1", Domain: "example.com", Path: "/", Expires: time.Now().Add(-time.Hour)},
			{Name: "new", Value: "2", Domain: "example.com", Path: "/", Expires: time.Now().Add(time.Hour)},
		})
		all := j.All()
		require.Len(t, all, 1)
		assert.Equal(t, "new", all[0].Name)
	})
}
