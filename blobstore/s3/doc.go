// Package s3 stores sequence store blobs in Amazon S3.
//
//	store, err := s3.New(ctx, "genomes",
//	    s3.WithPrefix("runs/2026-10/sample-17"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	w, err := seqstore.NewWriter(ctx, store, ...)
//
// Blobs are read with ranged GETs, so a random-access reader fetches only the
// bytes of the requested sequence. Chunk files are streamed through multipart
// uploads and the index header is written with a single checksummed PUT.
package s3
