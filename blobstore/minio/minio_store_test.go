package minio

import (
	"context"
	"testing"

	"github.com/hupe1980/kmeansbench/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelName(t *testing.T) {
	assert.Equal(t, "Sequential.csv", relName("kmeans/Sequential.csv", "kmeans/"))
	assert.Equal(t, "Sequential.csv", relName("kmeans/Sequential.csv", "kmeans"))
	assert.Equal(t, "run/a.csv", relName("run/a.csv", ""))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("Device.csv"))
	assert.Equal(t, "application/zstd", contentType("Device.csv.zst"))
	assert.Equal(t, "application/json", contentType("report.json"))
	assert.Equal(t, "application/octet-stream", contentType("Device.csv.lz4"))
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvAccessKey, "")
	t.Setenv(EnvSecretKey, "")
	_, err := NewFromEnv("localhost:9000", "results", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	t.Setenv(EnvAccessKey, "minioadmin")
	t.Setenv(EnvSecretKey, "minioadmin")
	t.Setenv(EnvSecure, "maybe")
	_, err = NewFromEnv("localhost:9000", "results", "")
	assert.Error(t, err)

	t.Setenv(EnvSecure, "false")
	store, err := NewFromEnv("localhost:9000", "results", "kmeans/")
	require.NoError(t, err)
	assert.Equal(t, "kmeans/Device.csv", store.key("Device.csv"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	bucket := "test-kmeansbench"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("dim,clusters,time\n4,2,0.000010\n")
	require.NoError(t, blobstore.PutBytes(ctx, store, "Sequential.csv", data))

	got, err := blobstore.ReadAll(ctx, store, "Sequential.csv")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "Sequential.csv")

	_, err = store.Open(ctx, "missing.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
