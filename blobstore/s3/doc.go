// Package s3 provides an S3 implementation of the blobstore.BlobStore
// interface and a DynamoDB ledger of published results.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("kmeans/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	ledger, err := s3.NewLedger(ctx, "kmeans-runs", s3.WithRegion("us-east-1"))
//
// # Features
//
//   - Multipart uploads through the transfer manager
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - Credentials from the default AWS chain
package s3
