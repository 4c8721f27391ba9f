package seqstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
	"github.com/hupe1980/seqstore/testutil"
)

// tinyChunks makes DNA chunks of two residues and protein chunks of one.
var tinyChunks = WithMaxChunkBytes(1)

func writeRecords(t *testing.T, store blobstore.BlobStore, typ alphabet.Type, records []feed.Record, opts ...Option) *Summary {
	t.Helper()
	s, err := NewWriter(store, opts...).Write(context.Background(), feed.NewSliceFeed(typ, records))
	require.NoError(t, err)
	return s
}

func randomRecords(seed int64, count int, quality bool) []feed.Record {
	return testutil.NewRNG(seed).Records(alphabet.DNA, count, 0, 40, quality)
}

// readAll decodes every sequence of r by id.
func readAll(t *testing.T, r RandomAccessReader) [][]byte {
	t.Helper()
	out := make([][]byte, r.Count())
	for id := range r.Count() {
		n, err := r.Length(id)
		require.NoError(t, err)
		out[id] = make([]byte, n)
		got, err := r.Read(id, out[id])
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
	return out
}

// scanAll decodes every sequence of r by advancing.
func scanAll(t *testing.T, r SequenceReader) [][]byte {
	t.Helper()
	var out [][]byte
	for r.Advance() {
		n, err := r.CurrentLength()
		require.NoError(t, err)
		buf := make([]byte, n)
		got, err := r.ReadCurrent(buf)
		require.NoError(t, err)
		out = append(out, buf[:got])
	}
	require.NoError(t, r.Err())
	return out
}

func sequences(records []feed.Record) [][]byte {
	out := make([][]byte, len(records))
	for i, r := range records {
		out[i] = r.Sequence
		if out[i] == nil {
			out[i] = []byte{}
		}
	}
	return out
}

func normalize(seqs [][]byte) [][]byte {
	for i, s := range seqs {
		if s == nil {
			seqs[i] = []byte{}
		}
	}
	return seqs
}
