// Package minio provides a blobstore.Store on the MinIO client.
//
// It works against MinIO and other S3-compatible systems (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.Dial("localhost:9000", "indexes",
//	    minio.WithCredentials("minioadmin", "minioadmin"),
//	    minio.WithPrefix("hg38/"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = metal.SaveIndex(ctx, ix, "hg38.mtl", metal.WithStore(store))
package minio
