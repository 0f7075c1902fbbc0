package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okian/lapprice/internal/domain/predictor"
	"github.com/okian/lapprice/pkg/logger"
)

// ModelStore saves and loads predictor bundles through a Store.
type ModelStore struct {
	store Store
	opts  []predictor.Option
}

// NewModelStore wraps store. opts are applied to every loaded Predictor.
func NewModelStore(store Store, opts ...predictor.Option) *ModelStore {
	return &ModelStore{store: store, opts: opts}
}

// Location returns where the bundle lives.
func (m *ModelStore) Location() string { return m.store.Location() }

// Exists reports whether a bundle was published.
func (m *ModelStore) Exists(ctx context.Context) (bool, error) {
	return m.store.Exists(ctx)
}

// Save uploads the bundle file at localPath after checking it decodes.
func (m *ModelStore) Save(ctx context.Context, localPath string) error {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read bundle %s: %w", localPath, err)
	}
	if _, err := predictor.Decode(bytes.NewReader(raw)); err != nil {
		return err
	}
	if err := m.store.Put(ctx, bytes.NewReader(raw)); err != nil {
		return err
	}
	logger.Get().Named("artifact").Info(ctx, "bundle published",
		logger.String("location", m.store.Location()),
		logger.Int("bytes", len(raw)))
	return nil
}

// SaveBundle encodes b and uploads it.
func (m *ModelStore) SaveBundle(ctx context.Context, b *predictor.Bundle) error {
	var buf bytes.Buffer
	if err := predictor.Encode(&buf, b); err != nil {
		return err
	}
	return m.store.Put(ctx, &buf)
}

// Load fetches and decodes the published bundle. It returns ErrNotFound
// when nothing was published.
func (m *ModelStore) Load(ctx context.Context) (*predictor.Predictor, error) {
	rc, err := m.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := predictor.Decode(rc)
	if err != nil {
		return nil, err
	}
	return predictor.New(b, m.opts...)
}

// IsNotFound reports whether err means no bundle has been published.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
