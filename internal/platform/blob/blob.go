// Package blob keeps uploaded source documents until the ingestion task
// that reads them has run. The local backend writes under a directory; the
// minio backend stores objects in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no blob exists for a key.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidKey is returned for empty keys or keys escaping the store root.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store saves and retrieves blobs by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Pather is implemented by stores whose blobs already live on local disk.
type Pather interface {
	Path(key string) (string, error)
}

// NewKey builds a unique key for an upload, keeping the file extension so
// the extractor registry can pick a format.
func NewKey(trackedItemID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("uploads", trackedItemID.String(), uuid.NewString()+ext)
}

// Localize returns a local file path holding the blob's bytes. For stores
// that implement Pather the blob's own path is returned and cleanup is a
// no-op; otherwise the blob is copied to a temporary file that cleanup
// removes.
func Localize(ctx context.Context, s Store, key string) (string, func(), error) {
	noop := func() {}
	if p, ok := s.(Pather); ok {
		local, err := p.Path(key)
		if err != nil {
			return "", noop, err
		}
		if _, err := os.Stat(local); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", noop, fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return "", noop, err
		}
		return local, noop, nil
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		return "", noop, err
	}
	defer func() { _ = rc.Close() }()

	f, err := os.CreateTemp("", "scry-blob-*"+path.Ext(key))
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", noop, fmt.Errorf("failed to copy blob %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

func validateKey(key string) (string, error) {
	clean := path.Clean(strings.TrimSpace(key))
	if clean == "." || clean == "/" || strings.HasPrefix(clean, "../") || clean == ".." || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
