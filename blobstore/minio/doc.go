// Package minio stores snapshot blobs in MinIO or any S3-compatible object
// store through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "snapshots/")
//	info, err := persistence.SaveBlob(ctx, store, "parcels.zsp", idx)
package minio
