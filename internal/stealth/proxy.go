package stealth

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

type sessionKey struct{}

// WithSession tags ctx with the session a request belongs to.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session tag set by WithSession.
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// ProxyPool pins each session to one upstream proxy so a returning visitor
// keeps its egress address. Untagged requests rotate round-robin.
type ProxyPool struct {
	proxies []*url.URL
	mu      sync.Mutex
	idx     int
}

// NewProxyPool returns nil when no proxies are given, meaning direct routing.
func NewProxyPool(proxies []*url.URL) *ProxyPool {
	if len(proxies) == 0 {
		return nil
	}
	return &ProxyPool{proxies: proxies}
}

// LoadProxyFile reads one proxy URL per line. Blank lines and # comments are
// skipped; entries without a scheme are treated as http.
func LoadProxyFile(path string) (*ProxyPool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var proxies []*url.URL
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("proxy file line %d: invalid proxy %q", line, raw)
		}
		proxies = append(proxies, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file: %w", err)
	}
	return NewProxyPool(proxies), nil
}

// Len reports the number of proxies.
func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// ForSession returns the proxy a session is pinned to.
func (p *ProxyPool) ForSession(id string) *url.URL {
	h := fnv.New32a()
	h.Write([]byte(id))
	return p.proxies[h.Sum32()%uint32(len(p.proxies))]
}

// Next returns the next proxy in round-robin order.
func (p *ProxyPool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.proxies[p.idx%len(p.proxies)]
	p.idx++
	return u
}

// Proxy is an http.Transport Proxy func.
func (p *ProxyPool) Proxy(req *http.Request) (*url.URL, error) {
	if p == nil {
		return nil, nil
	}
	if id := SessionFrom(req.Context()); id != "" {
		return p.ForSession(id), nil
	}
	return p.Next(), nil
}
