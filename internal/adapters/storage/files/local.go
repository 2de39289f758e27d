package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a key has no stored file.
var ErrNotFound = errors.New("file not found")

// Store persists uploaded files under opaque keys.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore implements Store on the local filesystem. Files are written
// with owner-only permissions because they hold medical documents.
type LocalStore struct {
	root string
}

// NewLocalStore creates a file store rooted at the given directory.
// PRE: root is a writable directory path
// POST: Returns a ready store; the root directory is created if missing
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create file store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// path resolves a key to a filesystem path, rejecting traversal attempts.
func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid file key: %q", key)
	}
	return filepath.Join(s.root, key), nil
}

// Save writes the reader's content under the key, replacing any previous
// content. The write goes through a temp file and rename so readers never
// observe a partial file.
// PRE: key is a valid opaque key, r is readable
// POST: File content stored under key with 0600 permissions
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) error {
	dest, err := s.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Open returns a reader over the stored file.
// PRE: key is a valid opaque key
// POST: Returns an open reader, or ErrNotFound
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the stored file. Deleting a missing key is not an error
// so retention sweeps stay idempotent.
// PRE: key is a valid opaque key
// POST: File no longer exists
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
