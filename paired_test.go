package seqstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/feed"
	"github.com/hupe1980/seqstore/internal/fs"
	"github.com/hupe1980/seqstore/internal/layout"
	"github.com/hupe1980/seqstore/testutil"
)

func pairedRecords(nl, nr int) (left, right []feed.Record) {
	rng := testutil.NewRNG(42)
	return rng.Records(alphabet.DNA, nl, 0, 30, true), rng.Records(alphabet.DNA, nr, 0, 30, true)
}

func writePair(t *testing.T, store blobstore.BlobStore, left, right []feed.Record, opts ...Option) *PairSummary {
	t.Helper()
	s, err := NewPairedWriter(store, opts...).Write(context.Background(),
		feed.NewSliceFeed(alphabet.DNA, left), feed.NewSliceFeed(alphabet.DNA, right))
	require.NoError(t, err)
	return s
}

func TestPairedWriter(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	left, right := pairedRecords(40, 40)
	s := writePair(t, store, left, right, WithMaxChunkBytes(4))

	assert.Equal(t, s.Left.StoreID, s.Right.StoreID)
	assert.Equal(t, ArmLeft, s.Left.Arm)
	assert.Equal(t, ArmRight, s.Right.Arm)

	p, err := OpenPair(ctx, store)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, ArmLeft, p.Left.Arm())
	assert.Equal(t, ArmRight, p.Right.Arm())
	assert.True(t, p.Left.StoreID().Compatible(p.Right.StoreID()))
	assert.Equal(t, sequences(left), normalize(readAll(t, p.Left)))
	assert.Equal(t, sequences(right), normalize(readAll(t, p.Right)))

	info, err := Info(ctx, store)
	require.NoError(t, err)
	require.Len(t, info.Arms, 2)
	assert.Equal(t, "left", info.Arms[0].Arm)
	assert.Equal(t, "right", info.Arms[1].Arm)
}

func TestPairedWriter_UnequalFeeds(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	left, right := pairedRecords(10, 9)

	_, err := NewPairedWriter(store).Write(ctx,
		feed.NewSliceFeed(alphabet.DNA, left), feed.NewSliceFeed(alphabet.DNA, right))
	require.ErrorIs(t, err, ErrInvalidArgument)

	for _, arm := range []string{layout.LeftArm, layout.RightArm} {
		_, err := store.Open(ctx, layout.Join(arm, layout.IndexFile))
		assert.ErrorIs(t, err, blobstore.ErrNotFound, arm)
	}
	_, err = OpenPair(ctx, store)
	assert.ErrorIs(t, err, ErrNotStore)
}

func TestOpenPair_Incompatible(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	left, right := pairedRecords(5, 5)

	// Two independent writes draw different identifiers.
	writePair(t, store, left, right)
	other := blobstore.NewMemoryStore()
	writePair(t, other, left, right)
	names, err := other.List(ctx, layout.RightArm+"/")
	require.NoError(t, err)
	for _, name := range names {
		data, err := readBlob(ctx, other, name)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, name, data))
	}

	_, err = OpenPair(ctx, store)
	assert.ErrorIs(t, err, ErrIncompatiblePair)

	_, err = VerifyPair(ctx, store)
	assert.ErrorIs(t, err, ErrIncompatiblePair)
}

func TestAsyncPairedWriter(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	left, right := pairedRecords(100, 100)

	w, err := NewAsyncPairedWriter(ctx, store, alphabet.DNA, true, WithQueueSize(4), WithMaxChunkBytes(16))
	require.NoError(t, err)
	for i := range left {
		require.NoError(t, w.Add(ctx, left[i], right[i]))
	}
	s, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), s.Left.Count)
	assert.Equal(t, uint64(100), s.Right.Count)

	_, err = w.Close()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Add(ctx, left[0], right[0]), ErrClosed)

	p, err := OpenPair(ctx, store)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, sequences(left), normalize(readAll(t, p.Left)))
	assert.Equal(t, sequences(right), normalize(readAll(t, p.Right)))
}

func TestAsyncPairedWriter_CopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w, err := NewAsyncPairedWriter(ctx, store, alphabet.DNA, false)
	require.NoError(t, err)
	buf := []byte{1, 2, 3}
	require.NoError(t, w.Add(ctx, feed.Record{Sequence: buf}, feed.Record{Sequence: buf}))
	buf[0] = 4
	_, err = w.Close()
	require.NoError(t, err)

	p, err := OpenPair(ctx, store)
	require.NoError(t, err)
	defer p.Close()
	got := make([]byte, 3)
	_, err = p.Left.Read(0, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestAsyncPairedWriter_ErrorPolicy(t *testing.T) {
	ctx := context.Background()
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("left/"+layout.DataFile(0), fs.Fault{FailAfterBytes: 0})
	store := blobstore.NewLocalStore(t.TempDir(), blobstore.WithFileSystem(faulty))

	w, err := NewAsyncPairedWriter(ctx, store, alphabet.DNA, false, WithQueueSize(1), tinyChunks)
	require.NoError(t, err)

	rec := feed.Record{Sequence: []byte{1, 2, 3, 4, 1, 2, 3, 4}}
	var addErr error
	for range 100 {
		if addErr = w.Add(ctx, rec, rec); addErr != nil {
			break
		}
	}
	require.ErrorIs(t, addErr, fs.ErrInjected, "the background error reaches Add")
	assert.ErrorIs(t, w.Add(ctx, rec, rec), fs.ErrInjected, "and every later Add")

	_, err = w.Close()
	require.ErrorIs(t, err, fs.ErrInjected, "and Close")

	_, err = OpenPair(ctx, store)
	assert.ErrorIs(t, err, ErrNotStore)
}
