package httputil_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/keepwarm/internal/httputil"
)

// flakyServer answers the first failures requests with status, then 200.
func flakyServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}
		io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func retryClient(base http.RoundTripper) *http.Client {
	return httputil.NewHTTPClient(&httputil.RetryTransport{
		Base:           base,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}, nil)
}

func TestRetryTransport(t *testing.T) {
	t.Parallel()

	t.Run("recovers from transient statuses", func(t *testing.T) {
		t.Parallel()
		srv, hits := flakyServer(t, 2, http.StatusServiceUnavailable)

		var retries []time.Duration
		client := httputil.NewHTTPClient(&httputil.RetryTransport{
			Base:           srv.Client().Transport,
			InitialBackoff: time.Millisecond,
			OnRetry:        func(_ error, d time.Duration) { retries = append(retries, d) },
		}, nil)

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), hits.Load())
		assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, retries)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()
		srv, hits := flakyServer(t, 100, http.StatusTooManyRequests)

		_, err := retryClient(srv.Client().Transport).Get(srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, httputil.ErrRetriesExhausted)
		assert.Contains(t, err.Error(), "last status 429")
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("does not retry other statuses", func(t *testing.T) {
		t.Parallel()
		srv, hits := flakyServer(t, 100, http.StatusNotFound)

		resp, err := retryClient(srv.Client().Transport).Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("does not retry POST", func(t *testing.T) {
		t.Parallel()
		srv, hits := flakyServer(t, 100, http.StatusBadGateway)

		resp, err := retryClient(srv.Client().Transport).Post(srv.URL, "text/plain", strings.NewReader("x"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("retries connection errors", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		})

		_, err := retryClient(failing).Get("http://127.0.0.1:1/")
		require.Error(t, err)
		assert.ErrorIs(t, err, httputil.ErrRetriesExhausted)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()
		srv, _ := flakyServer(t, 100, http.StatusServiceUnavailable)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		_, err = retryClient(srv.Client().Transport).Do(req)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func encoded(t *testing.T, encoding string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = zw
	default:
		return payload
	}
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	payload := []byte("<html><head><title>Keep me warm</title></head><body>hello</body></html>")

	for _, enc := range []string{"", "gzip", "br", "deflate", "zstd"} {
		t.Run("encoding "+enc, func(t *testing.T) {
			t.Parallel()
			resp := &http.Response{
				Header: http.Header{},
				Body:   io.NopCloser(bytes.NewReader(encoded(t, enc, payload))),
			}
			if enc != "" {
				resp.Header.Set("Content-Encoding", enc)
			}

			body, err := httputil.ReadBody(resp, 0)
			require.NoError(t, err)
			assert.Equal(t, payload, body)
		})
	}

	t.Run("limit", func(t *testing.T) {
		t.Parallel()
		resp := &http.Response{Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(payload))}
		body, err := httputil.ReadBody(resp, 6)
		require.NoError(t, err)
		assert.Equal(t, "<html>", string(body))
	})
}

func TestPageTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Keep me warm", httputil.PageTitle([]byte("<html><head><title>\n Keep  me warm </title></head></html>")))
	assert.Equal(t, "", httputil.PageTitle([]byte("<p>no title</p>")))
	assert.Equal(t, "", httputil.PageTitle(nil))
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short text", httputil.Snippet([]byte("short\n  text"), 100))
	assert.Equal(t, "abc...", httputil.Snippet([]byte("abcdef"), 3))
	assert.Equal(t, "héé...", httputil.Snippet([]byte("héééé"), 3))
}

func TestBrowserHeaders(t *testing.T) {
	t.Parallel()

	h := httputil.BrowserHeaders()
	assert.Equal(t, httputil.AcceptEncoding, h.Get("Accept-Encoding"))
	assert.Equal(t, "1", h.Get("Upgrade-Insecure-Requests"))
	assert.Equal(t, "?1", h.Get("Sec-Fetch-User"))
}
