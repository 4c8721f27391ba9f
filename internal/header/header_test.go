package header

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/hupe1980/seqstore/blobstore"
	"github.com/hupe1980/seqstore/internal/errs"
	"github.com/hupe1980/seqstore/internal/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Header {
	return &Header{
		SequenceType:  1,
		DataWidth:     3,
		QualityWidth:  6,
		Flags:         FlagQuality | FlagNames,
		Arm:           1,
		Chunks:        4,
		NameChunks:    1,
		MaxChunkBytes: 1 << 20,
		Count:         2,
		TotalLength:   12,
		MinLength:     4,
		MaxLength:     8,
		Data:          Checksum{Sum: 0xdeadbeef, Bytes: 5},
		Quality:       Checksum{Sum: 1, Bytes: 9},
		Names:         Checksum{Sum: 2, Bytes: 4},
		StoreID:       [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		CreatedAt:     time.Unix(0, 1700000000000000000),
		ResidueCounts: []uint64{0, 3, 3, 3, 3},
		QualityCounts: []uint64{0, 12},
		Notes:         "built by test",
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	h := sample()
	data, err := h.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(IndexName, data)
	require.NoError(t, err)
	h.Version = CurrentVersion
	assert.Equal(t, h.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
	got.CreatedAt = h.CreatedAt
	assert.Equal(t, h, got)
	assert.True(t, got.HasQuality())
	assert.True(t, got.HasNames())
}

const IndexName = "store/INDEX"

func TestDecode_EveryByteFlipFails(t *testing.T) {
	data, err := sample().MarshalBinary()
	require.NoError(t, err)
	for i := range data {
		mutated := append([]byte(nil), data...)
		mutated[i] ^= 0x40
		_, err := Decode(IndexName, mutated)
		assert.Error(t, err, "byte %d", i)
	}
}

func TestDecode_NewerVersion(t *testing.T) {
	h := sample()
	h.Version = CurrentVersion + 1
	data, err := h.MarshalBinary()
	require.NoError(t, err)
	_, err = Decode(IndexName, data)
	assert.ErrorIs(t, err, errs.ErrNewerVersion)
	assert.NotErrorIs(t, err, errs.ErrCorrupt)
}

func TestDecode_MissingFieldsNamePath(t *testing.T) {
	data, err := sample().MarshalBinary()
	require.NoError(t, err)

	// Re-frame a shortened payload with a valid checksum.
	payload := data[prefixSize : len(data)-30]
	framed := make([]byte, prefixSize)
	copy(framed, data[:8])
	binary.LittleEndian.PutUint32(framed[8:], hash.CRC32C(payload))
	binary.LittleEndian.PutUint32(framed[12:], uint32(len(payload)))
	framed = append(framed, payload...)

	_, err = Decode(IndexName, framed)
	var ce *errs.CorruptError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, IndexName, ce.Path)
	assert.Contains(t, err.Error(), "missing required fields")

	_, err = Decode(IndexName, data[:10])
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, IndexName)
	assert.ErrorIs(t, err, errs.ErrNotStore)

	require.NoError(t, Save(ctx, store, IndexName, sample()))
	got, err := Load(ctx, store, IndexName)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Count)

	require.NoError(t, store.Put(ctx, IndexName, []byte("garbage-header-bytes")))
	_, err = Load(ctx, store, IndexName)
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}

func TestDecode_Validation(t *testing.T) {
	h := sample()
	h.DataWidth = 9
	data, _ := h.MarshalBinary()
	_, err := Decode(IndexName, data)
	assert.ErrorIs(t, err, errs.ErrCorrupt)

	h = sample()
	h.MaxLength = 100
	data, _ = h.MarshalBinary()
	_, err = Decode(IndexName, data)
	assert.ErrorIs(t, err, errs.ErrCorrupt)
}
