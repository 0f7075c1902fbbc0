// Package artifact persists the published model bundle.
//
// A Store holds exactly one object: the bundle for one model key under one
// bucket or directory. ModelStore layers bundle encoding on top of it.
package artifact

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Store is a single-object blob store.
type Store interface {
	Exists(ctx context.Context) (bool, error)
	Put(ctx context.Context, r io.Reader) error
	// Get returns ErrNotFound when nothing was published yet.
	Get(ctx context.Context) (io.ReadCloser, error)
	Location() string
}

// MemoryStore keeps the object in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
	puts int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Exists implements Store.
func (m *MemoryStore) Exists(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data != nil, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = b
	m.puts++
	m.mu.Unlock()
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(context.Context) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// Location implements Store.
func (m *MemoryStore) Location() string { return "memory://model" }

// Puts reports how many objects were written.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
