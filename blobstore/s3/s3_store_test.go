package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/kmeansbench/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_Put(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix", DefaultUploadConfig())

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/Sequential.csv"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	data := "dim,clusters,time\n4,2,0.000001\n"
	err := store.Put(context.Background(), "Sequential.csv", strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, string(mockClient.body("prefix/Sequential.csv")))
	assert.Equal(t, "s3://test-bucket/prefix/Sequential.csv", store.URI("Sequential.csv"))
	mockClient.AssertExpectations(t)
}

func TestNew_WithClient(t *testing.T) {
	mockClient := new(MockS3Client)
	store, err := New(context.Background(), "bench", WithClient(mockClient), WithPrefix("runs"),
		WithUploadConfig(UploadConfig{PartSize: 8 << 20, Concurrency: 2}))
	require.NoError(t, err)

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "runs/Device.csv"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "Device.csv", strings.NewReader("dim,clusters,time\n"), 18))
	assert.Equal(t, "bench", store.Bucket())
	mockClient.AssertExpectations(t)
}

func TestStore_PutError(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "", DefaultUploadConfig())

	mockClient.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	err := store.Put(context.Background(), "a.csv", strings.NewReader("x"), 1)
	assert.ErrorContains(t, err, "access denied")
}

func TestStore_Open(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix", DefaultUploadConfig())

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/foo"
		})).Return(nil, &types.NoSuchKey{}).Once()

		_, err := store.Open(context.Background(), "foo")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Key == "prefix/bar"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("content")),
		}, nil).Once()

		rc, err := store.Open(context.Background(), "bar")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})
}

func TestStore_List(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix/", DefaultUploadConfig())

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "test-bucket" && *input.Prefix == "prefix/"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("prefix/Sequential.csv")},
			{Key: aws.String("prefix/run/Device.csv.zst")},
		},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sequential.csv", "run/Device.csv.zst"}, keys)
}

func TestStore_List_Pagination(t *testing.T) {
	mockClient := new(MockS3Client)
	store := NewStore(mockClient, "test-bucket", "prefix/", DefaultUploadConfig())

	// Page 1
	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("prefix/b.csv")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
	}, nil).Once()

	// Page 2
	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken != nil && *input.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("prefix/a.csv")}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, keys)
	mockClient.AssertExpectations(t)
}

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket, WithPrefix("kmeansbench-test/"))
	require.NoError(t, err)

	require.NoError(t, blobstore.PutBytes(ctx, store, "Integration.csv", []byte("dim,clusters,time\n")))
	got, err := blobstore.ReadAll(ctx, store, "Integration.csv")
	require.NoError(t, err)
	assert.Equal(t, "dim,clusters,time\n", string(got))
}
