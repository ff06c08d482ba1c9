// Package storage is the object store for uploaded images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

// Bucket stores objects by key and exposes them under a public URL.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a public URL back to its key; ok is false for
	// URLs this bucket did not produce.
	KeyFromURL(url string) (key string, ok bool)
}

// LocalBucket keeps objects on disk under Root; they are served by the
// HTTP server at PublicURL.
type LocalBucket struct {
	Root      string
	PublicURL string
}

func NewLocalBucket(root, publicURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", root, err)
	}
	return &LocalBucket{Root: root, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (b *LocalBucket) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	full, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}
	return b.PublicURL + "/" + key, nil
}

func (b *LocalBucket) Delete(ctx context.Context, key string) error {
	full, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (b *LocalBucket) KeyFromURL(url string) (string, bool) {
	prefix := b.PublicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if _, err := b.resolve(key); err != nil {
		return "", false
	}
	return key, true
}

func (b *LocalBucket) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(b.Root, filepath.FromSlash(key)), nil
}
