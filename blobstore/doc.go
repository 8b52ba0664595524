// Package blobstore provides the storage abstraction used to publish
// benchmark results.
//
// BlobStore is the interface for writing and reading whole objects.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, atomic writes via rename
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 through the transfer manager
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement the BlobStore interface to support other backends:
//
//	type BlobStore interface {
//	    Put(ctx, name, r, size) error
//	    Open(ctx, name) (io.ReadCloser, error)
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
