// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	if err != nil {
//	    return err
//	}
//	ix, err := metal.OpenIndex(ctx, "hg38.mtl", metal.WithStore(store))
//
// # Features
//
//   - Range reads for partial fetches
//   - Streaming multipart uploads, aborted on failure
//   - CRC32C integrity checks on upload
//   - Automatic pagination for listing
package s3
