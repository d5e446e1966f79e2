package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Backend persists opaque session records keyed by session ID.
type Backend interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, id string) ([]byte, error)
	// Write replaces any prior record for id.
	Write(ctx context.Context, id string, data []byte) error
	// Remove deletes the record; a missing record is not an error.
	Remove(ctx context.Context, id string) error
	// Purge deletes every record and reports how many were removed.
	Purge(ctx context.Context) (int, error)
	Close() error
}

const recordExt = ".json"

// DirBackend stores one <id>.json file per session.
type DirBackend struct {
	dir string
}

// NewDirBackend creates dir if needed.
func NewDirBackend(dir string) (*DirBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &DirBackend{dir: dir}, nil
}

// Dir returns the directory records live in.
func (d *DirBackend) Dir() string { return d.dir }

func (d *DirBackend) path(id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	return filepath.Join(d.dir, id+recordExt), nil
}

func (d *DirBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordExt))
	}
	return ids, nil
}

func (d *DirBackend) Read(_ context.Context, id string) ([]byte, error) {
	p, err := d.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return data, err
}

// Write goes through a temp file and rename so a crash never leaves a
// half-written record behind.
func (d *DirBackend) Write(_ context.Context, id string, data []byte) error {
	p, err := d.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

func (d *DirBackend) Remove(_ context.Context, id string) error {
	p, err := d.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (d *DirBackend) Purge(ctx context.Context) (int, error) {
	ids, err := d.List(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, id := range ids {
		if err := d.Remove(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (d *DirBackend) Close() error { return nil }

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// Backend kinds accepted by OpenBackend.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// BackendOptions selects and configures a record backend.
type BackendOptions struct {
	Kind       string
	Dir        string
	SQLitePath string
	RedisURL   string
	RedisKey   string
}

// OpenBackend builds the backend named by opts.Kind; empty means dir.
func OpenBackend(ctx context.Context, opts BackendOptions) (Backend, error) {
	switch opts.Kind {
	case "", BackendDir:
		return NewDirBackend(opts.Dir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("create session dir: %w", err)
			}
			path = filepath.Join(opts.Dir, "sessions.db")
		}
		return NewSQLiteBackend(ctx, path)
	case BackendRedis:
		return NewRedisBackend(ctx, opts.RedisURL, opts.RedisKey)
	default:
		return nil, fmt.Errorf("unknown session store %q", opts.Kind)
	}
}
