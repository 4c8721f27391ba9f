package seqstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/hupe1980/seqstore/testutil"
)

func packed(t *testing.T, width uint8, values []byte) *bitpack.Array {
	t.Helper()
	a, err := bitpack.NewArray(width, uint64(len(values)))
	require.NoError(t, err)
	require.NoError(t, a.Append(values))
	return a
}

// chunkBlobs returns every chunk and pointer table blob of store by name.
func chunkBlobs(t *testing.T, store *blobstore.MemoryStore) map[string][]byte {
	t.Helper()
	ctx := context.Background()
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	out := make(map[string][]byte)
	for _, name := range names {
		if !strings.HasSuffix(name, ".bin") {
			continue
		}
		data, err := readBlob(ctx, store, name)
		require.NoError(t, err)
		out[name] = data
	}
	return out
}

func TestBuilder_AddPackedMatchesAdd(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []alphabet.Type{alphabet.DNA, alphabet.Protein} {
		t.Run(typ.String(), func(t *testing.T) {
			records := testutil.NewRNG(20).Records(typ, 60, 0, 50, true)
			opts := applyOptions([]Option{WithMaxChunkBytes(7), WithStoreID(NewStoreID())})

			viaValues := blobstore.NewMemoryStore()
			a, err := newBuilder(ctx, viaValues, "", typ, true, &opts)
			require.NoError(t, err)
			viaPacked := blobstore.NewMemoryStore()
			b, err := newBuilder(ctx, viaPacked, "", typ, true, &opts)
			require.NoError(t, err)

			for _, rec := range records {
				require.NoError(t, a.add(rec.Name, rec.Sequence, rec.Quality))
				require.NoError(t, b.addPacked(rec.Name,
					packed(t, typ.Width(), rec.Sequence),
					packed(t, alphabet.QualityWidth, rec.Quality)))
			}
			ha, err := a.finish()
			require.NoError(t, err)
			hb, err := b.finish()
			require.NoError(t, err)

			assert.Equal(t, ha.Data, hb.Data)
			assert.Equal(t, ha.Quality, hb.Quality)
			assert.Equal(t, ha.ResidueCounts, hb.ResidueCounts)
			assert.Equal(t, ha.QualityCounts, hb.QualityCounts)
			assert.Equal(t, chunkBlobs(t, viaValues), chunkBlobs(t, viaPacked))
		})
	}
}

func TestBuilder_AddPackedRejects(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		seq  *bitpack.Array
		qual *bitpack.Array
	}{
		{"code outside alphabet", packed(t, 3, []byte{1, 6}), packed(t, alphabet.QualityWidth, []byte{1, 1})},
		{"wrong width", packed(t, 5, []byte{1}), packed(t, alphabet.QualityWidth, []byte{1})},
		{"quality length", packed(t, 3, []byte{1, 2}), packed(t, alphabet.QualityWidth, []byte{1})},
		{"missing quality", packed(t, 3, []byte{1}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := applyOptions(nil)
			b, err := newBuilder(ctx, blobstore.NewMemoryStore(), "", alphabet.DNA, true, &opts)
			require.NoError(t, err)
			assert.ErrorIs(t, b.addPacked("x", tt.seq, tt.qual), ErrInvalidArgument)
			_, err = b.finish()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestExtract_ChunksMatchDirectWrite(t *testing.T) {
	ctx := context.Background()
	records := randomRecords(31, 200, true)
	src := blobstore.NewMemoryStore()
	writeRecords(t, src, alphabet.DNA, records, WithMaxChunkBytes(13))

	r, err := Open(ctx, src)
	require.NoError(t, err)
	defer r.Close()

	id := NewStoreID()
	subset := blobstore.NewMemoryStore()
	_, err = Extract(ctx, r, nil, subset, WithMaxChunkBytes(9), WithStoreID(id))
	require.NoError(t, err)

	direct := blobstore.NewMemoryStore()
	writeRecords(t, direct, alphabet.DNA, records, WithMaxChunkBytes(9), WithStoreID(id))

	assert.Equal(t, chunkBlobs(t, direct), chunkBlobs(t, subset))
}
