package seqstore_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/seqstore"
	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
)

const exampleFASTA = `>chr1 sample
ACGTACGTNN
>chr2
GATTACA
>chr3
TTAGGG
`

func Example() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	f := feed.NewFASTA(strings.NewReader(exampleFASTA), alphabet.DNA)
	summary, err := seqstore.NewWriter(store, seqstore.WithMaxChunkBytes(4)).Write(ctx, f)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("sequences:", summary.Count, "residues:", summary.TotalLength)

	r, err := seqstore.Open(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	n, _ := r.Length(1)
	codes := make([]byte, n)
	if _, err := r.Read(1, codes); err != nil {
		log.Fatal(err)
	}
	name, _ := r.Name(1)
	fmt.Printf("%s: %s\n", name, alphabet.DNA.DecodeAll(nil, codes))
	// Output:
	// sequences: 3 residues: 23
	// chr2: GATTACA
}

func ExampleMemWriter() {
	ctx := context.Background()
	f := feed.NewFASTA(strings.NewReader(exampleFASTA), alphabet.DNA)

	r, err := seqstore.NewMemWriter().Write(ctx, f)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for r.Advance() {
		name, _ := r.CurrentName()
		n, _ := r.CurrentLength()
		fmt.Println(name, n)
	}
	// Output:
	// chr1 sample 10
	// chr2 7
	// chr3 6
}

func ExampleVerify() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	f := feed.NewFASTA(strings.NewReader(exampleFASTA), alphabet.DNA)
	if _, err := seqstore.NewWriter(store).Write(ctx, f); err != nil {
		log.Fatal(err)
	}

	report, err := seqstore.Verify(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("valid:", report.Valid, "sequences:", report.Count)

	store.Mutate("data-000000.bin", func(b []byte) []byte {
		b[0] ^= 0x01
		return b
	})
	report, err = seqstore.Verify(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("valid:", report.Valid)
	// Output:
	// valid: true sequences: 3
	// valid: false
}

func ExampleExtract() {
	ctx := context.Background()
	f := feed.NewFASTA(strings.NewReader(exampleFASTA), alphabet.DNA)
	src, err := seqstore.NewMemWriter().Write(ctx, f)
	if err != nil {
		log.Fatal(err)
	}
	defer src.Close()

	dst := blobstore.NewMemoryStore()
	if _, err := seqstore.Extract(ctx, src, roaring64.BitmapOf(0, 2), dst); err != nil {
		log.Fatal(err)
	}

	r, err := seqstore.Open(ctx, dst)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()
	for id := range r.Count() {
		name, _ := r.Name(id)
		fmt.Println(id, name)
	}
	// Output:
	// 0 chr1 sample
	// 1 chr3
}
