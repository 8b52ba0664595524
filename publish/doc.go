// Package publish uploads finished benchmark files to a blob store.
//
// The destination is chosen by URL:
//
//	/tmp/results           local directory
//	file:///tmp/results    local directory
//	s3://bucket/prefix     Amazon S3 (default AWS credential chain)
//	minio://host:9000/bucket/prefix
//	                       MinIO (MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_SECURE)
//	mem://                 in-process store, for tests
//
// Objects are named "<Engine>.csv" plus the extension of the configured
// compression. An object that already exists is left alone, mirroring the
// skip-if-exists rule of the benchmark itself. When a ledger is configured,
// every upload is recorded under the publisher's run ID.
package publish
