package httputil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrRetriesExhausted is returned once every attempt hit a transient failure.
var ErrRetriesExhausted = errors.New("retries exhausted")

// DefaultRetryStatuses are the transient statuses worth another attempt.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 300 * time.Millisecond
)

// TransportOptions configures the pooled base transport.
type TransportOptions struct {
	Timeout time.Duration // dial, TLS handshake and response header timeout
	Proxy   func(*http.Request) (*url.URL, error)
}

// NewTransport creates a keep-alive transport. Compression is negotiated by
// the caller's Accept-Encoding header and decoded with ReadBody.
func NewTransport(opts TransportOptions) *http.Transport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Transport{
		Proxy:                 opts.Proxy,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// NewHTTPClient creates an HTTP client with sensible defaults.
// An optional RoundTripper (e.g. RetryTransport) can be injected.
func NewHTTPClient(transport http.RoundTripper, jar http.CookieJar) *http.Client {
	if transport == nil {
		transport = NewTransport(TransportOptions{})
	}
	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   30 * time.Second,
	}
}

// RetryTransport retries idempotent requests on transport errors and on
// transient statuses with exponential backoff.
type RetryTransport struct {
	Base           http.RoundTripper
	MaxAttempts    int           // total attempts, default 3
	InitialBackoff time.Duration // default 300ms, doubled per retry
	Statuses       []int         // default DefaultRetryStatuses

	// OnRetry, if set, is called before each backoff sleep.
	OnRetry func(err error, wait time.Duration)
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("transient status %d", e.code) }

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	if attempts == 1 || !idempotent(req.Method) {
		return base.RoundTrip(req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.InitialBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultInitialBackoff
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), req.Context())

	var (
		resp *http.Response
		try  int
	)
	op := func() error {
		try++
		r := req
		if try > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("reset request body for retry: %w", err))
			}
			r = req.Clone(req.Context())
			r.Body = body
		}

		res, err := base.RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if t.retryable(res.StatusCode) {
			drain(res)
			return &statusError{code: res.StatusCode}
		}
		resp = res
		return nil
	}

	var notify backoff.Notify
	if t.OnRetry != nil {
		notify = t.OnRetry
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if req.Context().Err() != nil {
			return nil, err
		}
		var se *statusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w after %d attempts: last status %d", ErrRetriesExhausted, try, se.code)
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, try, err)
	}
	return resp, nil
}

func (t *RetryTransport) retryable(code int) bool {
	statuses := t.Statuses
	if statuses == nil {
		statuses = DefaultRetryStatuses
	}
	return slices.Contains(statuses, code)
}

func idempotent(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// ReadBody reads at most limit decoded bytes of a response body
// (limit <= 0 means unbounded).
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	var src io.Reader = resp.Body
	if limit > 0 {
		// Compressed input is bounded generously; output is bounded exactly below.
		src = io.LimitReader(resp.Body, limit*8)
	}

	var reader io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(src)
	case "zstd":
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "deflate":
		raw, err := io.ReadAll(src)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			reader = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			reader = fr
		}
	default:
		reader = src
	}

	if limit > 0 {
		reader = io.LimitReader(reader, limit)
	}
	body, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return body, err
	}
	return body, nil
}
