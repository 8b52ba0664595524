package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for storing published result objects.
type BlobStore interface {
	// Put writes size bytes from r to name, replacing any existing blob.
	// A failed Put leaves no partial blob behind.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns the sorted names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PutBytes writes data to name.
func PutBytes(ctx context.Context, s BlobStore, name string, data []byte) error {
	return s.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
}

// ReadAll reads the whole blob.
func ReadAll(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// Exists reports whether a blob with exactly this name exists.
func Exists(ctx context.Context, s BlobStore, name string) (bool, error) {
	names, err := s.List(ctx, name)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// HasPrefix is a helper for List implementations.
func HasPrefix(name, prefix string) bool {
	return prefix == "" || strings.HasPrefix(name, prefix)
}
