package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_Integration requires a running MinIO instance at
// SEQSTORE_MINIO_ENDPOINT (default localhost:9000).
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("SEQSTORE_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-seqstore"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix")

	data := []byte("ACGTACGTNNACGT")
	require.NoError(t, store.Put(ctx, "INDEX", data))

	blob, err := store.Open(ctx, "INDEX")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 8, 2)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "NN", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	wb, err := store.Create(ctx, "left/data-000000.bin")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	names, err := store.List(ctx, "left/")
	require.NoError(t, err)
	assert.Equal(t, []string{"left/data-000000.bin"}, names)

	require.NoError(t, store.Delete(ctx, "INDEX"))
	require.NoError(t, store.Delete(ctx, "left/data-000000.bin"))
	_, err = store.Open(ctx, "INDEX")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
