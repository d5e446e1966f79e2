// Package logger builds the slog logger used across keepwarm and carries a
// few attribute helpers for the fields every tick logs.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Options controls handler construction.
type Options struct {
	Verbose bool
	File    string // optional, appended to alongside stderr
	Format  string // "text" (default) or "json"
	Writer  io.Writer
}

// New returns a logger and a closer for the optional log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch opts.Format {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Attribute helpers return the empty Attr for zero inputs so they can be
// passed unconditionally.

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Session tags a record with the session identifier.
func Session(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session", id)
}

// Target tags a record with the target URL.
func Target(url string) slog.Attr {
	if url == "" {
		return slog.Attr{}
	}
	return slog.String("target", url)
}

// Status records an HTTP status code.
func Status(code int) slog.Attr {
	if code == 0 {
		return slog.Attr{}
	}
	return slog.Int("status", code)
}

// Elapsed records a duration rounded to milliseconds.
func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration("elapsed", d.Round(time.Millisecond))
}
