// Package storage keeps thumbnail blobs on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrWriteFailed wraps every Save failure. The blob is absent afterwards.
	ErrWriteFailed = errors.New("storage write failed")

	// ErrDeleteFailed wraps Delete failures other than a missing blob.
	ErrDeleteFailed = errors.New("storage delete failed")

	// ErrKeyExists is returned by Save, before any byte is read, when the key
	// is already taken.
	ErrKeyExists = errors.New("storage key already exists")

	// ErrInvalidKey rejects keys that are empty or would escape the blob directory.
	ErrInvalidKey = errors.New("invalid storage key")
)

// partialPrefix marks in-flight temp files. Keys may not use it.
const partialPrefix = ".partial-"

// Blob describes a stored blob as seen by Walk.
type Blob struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// LocalStore stores blobs as flat files in one directory.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore creates root/subdir if needed. urlPrefix is the public path
// the directory is served under, e.g. "/uploads"; references become
// urlPrefix/subdir/key.
func NewLocalStore(root, subdir, urlPrefix string) (*LocalStore, error) {
	dir := filepath.Join(root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory %s: %w", dir, err)
	}

	return &LocalStore{
		dir:       dir,
		urlPrefix: path.Join("/", urlPrefix, subdir),
	}, nil
}

// Dir returns the directory blobs are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save streams r into a new blob named key. Bytes go to a temp file that is
// renamed onto the key only after a successful copy and fsync, so a failed or
// cancelled save never leaves a partial blob behind.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	final := filepath.Join(s.dir, key)

	// Reserve the key first so concurrent uploads can never overwrite each other.
	reservation, err := os.OpenFile(final, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, ErrKeyExists
		}
		return 0, fmt.Errorf("%w: reserve %s: %w", ErrWriteFailed, key, err)
	}
	_ = reservation.Close()

	tmp, err := os.CreateTemp(s.dir, partialPrefix+"*")
	if err != nil {
		_ = os.Remove(final)
		return 0, fmt.Errorf("%w: create temp file: %w", ErrWriteFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			_ = os.Remove(final)
		}
	}()

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %w", ErrWriteFailed, key, err)
	}
	if err := ctx.Err(); err != nil {
		return n, fmt.Errorf("%w: write %s: %w", ErrWriteFailed, key, err)
	}

	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("%w: sync %s: %w", ErrWriteFailed, key, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %w", ErrWriteFailed, key, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return n, fmt.Errorf("%w: commit %s: %w", ErrWriteFailed, key, err)
	}

	committed = true
	return n, nil
}

// Delete removes the blob. A blob that is already gone counts as deleted.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrDeleteFailed, key, err)
	}

	return nil
}

// Exists reports whether a committed blob is stored under key.
func (s *LocalStore) Exists(key string) bool {
	if validateKey(key) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, key))
	return err == nil && info.Mode().IsRegular()
}

// Reference returns the public path a record stores for key.
func (s *LocalStore) Reference(key string) string {
	return s.urlPrefix + "/" + key
}

// KeyFromReference recovers the key from a reference produced by Reference.
func (s *LocalStore) KeyFromReference(ref string) string {
	return path.Base(ref)
}

// Walk calls fn for every committed blob. Temp files of in-flight saves are skipped.
func (s *LocalStore) Walk(ctx context.Context, fn func(Blob) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read blob directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), partialPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		if err := fn(Blob{Key: entry.Name(), Size: info.Size(), ModTime: info.ModTime()}); err != nil {
			return err
		}
	}

	return nil
}

func validateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	case strings.HasPrefix(key, partialPrefix):
		return fmt.Errorf("%w: %q uses a reserved prefix", ErrInvalidKey, key)
	}
	return nil
}

// contextReader stops a copy once ctx is done, between reads.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
