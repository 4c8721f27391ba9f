// Package seqstore stores very large collections of biological sequences
// (nucleotide or protein residues, optional per-residue quality values and
// names) for fast random access.
//
// A store is written once in a single forward pass and then opened and read
// many times. Residues are bit-packed at the narrowest width of their
// alphabet and split into size-bounded chunk files, each with a pointer
// table of sequence boundaries. A checksummed index header, written last,
// makes the location a store.
//
// # Quick Start
//
// Writing:
//
//	store := blobstore.NewLocalStore("./reads")
//	f := feed.NewFASTA(file, alphabet.DNA)
//	sum, _ := seqstore.NewWriter(store).Write(ctx, f)
//
// Reading:
//
//	r, _ := seqstore.Open(ctx, store)
//	defer r.Close()
//	buf := make([]byte, r.MaxLength())
//	n, _ := r.Read(42, buf)
//	fmt.Println(string(alphabet.DNA.DecodeAll(nil, buf[:n])))
//
// Cloud stores:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("runs/r1/"))
//	r, _ := seqstore.OpenStream(ctx, s3Store)
//
// # Readers
//
// Capabilities are split into small interfaces: SequenceReader (sequential
// core), RandomAccessReader, StatsReader, QualityReader, NameReader,
// HistogramReader and PairedReader. FileReader and MemReader implement all
// of them; StreamReader decodes forward only and reads every sequence at
// most once.
//
// Every reader starts unpositioned. Advance and Seek position it; Advance
// returning false leaves it exhausted. Accessors of the current sequence
// fail with ErrState unless positioned.
//
// # Paired Stores
//
// PairedWriter and AsyncPairedWriter write two correlated feeds into the
// sub-stores left/ and right/ sharing one StoreID. OpenPair checks that
// both arms belong together.
//
// # Integrity
//
// Verify rescans a store and compares checksums, counts, lengths and
// histograms with the index header. Errors are classified by ErrNotStore,
// ErrNewerVersion and ErrCorrupt. NOTES.json is informational and not
// covered by any checksum.
package seqstore
