// Package minio stores sequence store blobs in MinIO or any other
// S3-compatible service (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "genomes", "runs/sample-17")
//	r, err := seqstore.Open(ctx, store)
//
// No AWS SDK is needed, which suits air-gapped sequencing sites.
package minio
