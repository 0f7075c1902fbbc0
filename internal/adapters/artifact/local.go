package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps the object at dir/key on the local filesystem.
type LocalStore struct {
	dir string
	key string
}

// NewLocalStore returns a store rooted at dir.
func NewLocalStore(dir, key string) *LocalStore {
	return &LocalStore{dir: dir, key: key}
}

func (s *LocalStore) path() string { return filepath.Join(s.dir, s.key) }

// Exists implements Store.
func (s *LocalStore) Exists(context.Context) (bool, error) {
	_, err := os.Stat(s.path())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Put writes to a temporary file and renames it over the object, so readers
// never observe a partial bundle.
func (s *LocalStore) Put(_ context.Context, r io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.path(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.path(), err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Get implements Store.
func (s *LocalStore) Get(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path())
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Location implements Store.
func (s *LocalStore) Location() string { return "file://" + s.path() }
