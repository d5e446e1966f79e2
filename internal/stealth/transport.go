package stealth

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Transport is an http.RoundTripper that paces every outgoing attempt:
// RobotsCheck → RateLimiter → Base
type Transport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	RateLimiter *rate.Limiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// 1. Check robots.txt
	if t.Robots != nil {
		if err := t.Robots.Check(req.Context(), req.UserAgent(), req.URL.String()); err != nil {
			return nil, err
		}
	}

	// 2. Wait for rate limiter token
	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
