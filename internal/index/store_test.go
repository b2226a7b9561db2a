package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "index.gob"))
	ctx := context.Background()

	_, err := store.Get(ctx)
	assert.True(t, errors.Is(err, domain.ErrSnapshotNotFound))

	require.NoError(t, store.Put(ctx, []byte("first")))
	require.NoError(t, store.Put(ctx, []byte("second")))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "index.gob", entries[0].Name())
}

func TestFileStore_CanceledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "index.gob"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, []byte("x")), context.Canceled)
	_, err := store.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
