//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_S3SnapshotStore(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	store, err := NewS3SnapshotStore(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "askdocs-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	require.NoError(t, store.Put(ctx, []byte("snapshot-v1")))
	require.NoError(t, store.Put(ctx, []byte("snapshot-v2")))

	data, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot-v2"), data)
}
