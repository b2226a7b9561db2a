// Package storage persists index snapshots outside the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/index"
)

// MirroredStore writes snapshots to a primary store and a mirror. Reads come
// from the primary and fall back to the mirror when the primary has nothing,
// so a fresh host can start from the shared copy.
type MirroredStore struct {
	primary index.SnapshotStore
	mirror  index.SnapshotStore
}

// NewMirroredStore creates a MirroredStore.
func NewMirroredStore(primary, mirror index.SnapshotStore) *MirroredStore {
	return &MirroredStore{primary: primary, mirror: mirror}
}

// Put writes to the primary first. A mirror failure is returned after the
// primary write has succeeded.
func (m *MirroredStore) Put(ctx context.Context, data []byte) error {
	if err := m.primary.Put(ctx, data); err != nil {
		return err
	}
	if err := m.mirror.Put(ctx, data); err != nil {
		return fmt.Errorf("failed to mirror snapshot: %w", err)
	}
	return nil
}

// Get reads the primary, then the mirror. A snapshot found only in the
// mirror is copied back to the primary.
func (m *MirroredStore) Get(ctx context.Context) ([]byte, error) {
	data, err := m.primary.Get(ctx)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, err
	}

	data, err = m.mirror.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.primary.Put(ctx, data); err != nil {
		log.Printf("storage: failed to restore snapshot locally: %v", err)
	}
	return data, nil
}
