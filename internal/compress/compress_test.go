package compress

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(n int) []byte {
	var b bytes.Buffer
	for i := range n {
		fmt.Fprintf(&b, "SRR1234567.%d HWI-ST1234:8:1101:%d:2000 length=101", i, 1000+i)
	}
	return b.Bytes()
}

func TestCompress_Roundtrip(t *testing.T) {
	data := names(500)
	for _, typ := range []Type{None, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			block, err := Compress(data, typ)
			require.NoError(t, err)
			if typ != None {
				assert.Less(t, len(block), len(data)/2)
			}
			got, err := Decompress(block, typ, uint64(len(data)))
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestCompress_IncompressibleStoredRaw(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 9))
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}

	for _, typ := range []Type{LZ4, Zstd} {
		block, err := Compress(data, typ)
		require.NoError(t, err)
		assert.Equal(t, blockHeaderSize+len(data), len(block), typ)
		assert.Equal(t, data, block[blockHeaderSize:], typ)

		got, err := Decompress(block, typ, uint64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, data, got, typ)
	}
}

func TestCompress_Empty(t *testing.T) {
	for _, typ := range []Type{None, LZ4, Zstd} {
		block, err := Compress(nil, typ)
		require.NoError(t, err)
		got, err := Decompress(block, typ, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	data := names(50)
	block, err := Compress(data, Zstd)
	require.NoError(t, err)

	_, err = Decompress(block, Zstd, uint64(len(data))+1)
	assert.ErrorIs(t, err, ErrCorruptBlock)

	_, err = Decompress(block[:4], Zstd, uint64(len(data)))
	assert.ErrorIs(t, err, ErrCorruptBlock)

	truncated := append([]byte(nil), block[:len(block)-3]...)
	_, err = Decompress(truncated, Zstd, uint64(len(data)))
	assert.ErrorIs(t, err, ErrCorruptBlock)

	_, err = Decompress([]byte("abc"), None, 4)
	assert.ErrorIs(t, err, ErrCorruptBlock)
}

func TestParse(t *testing.T) {
	for _, typ := range []Type{None, LZ4, Zstd} {
		got, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := Parse("brotli")
	assert.Error(t, err)
	assert.False(t, Type(7).Valid())
}
