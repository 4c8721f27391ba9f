package stream

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/hupe1980/seqstore/internal/bitpack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomValues(rng *rand.Rand, n int, width uint8) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(rng.Intn(1 << width))
	}
	return out
}

func TestWriter_FlushPreservesTrailingBits(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, width := range []uint8{1, 2, 3, 5, 6, 7, 8} {
		values := randomValues(rng, 5000, width)

		var one bytes.Buffer
		w1, err := NewWriter(&one, width)
		require.NoError(t, err)
		require.NoError(t, w1.Write(values))
		require.NoError(t, w1.Close())

		var many bytes.Buffer
		w2, err := NewWriter(&many, width, WithBufferSize(7))
		require.NoError(t, err)
		for rest := values; len(rest) > 0; {
			n := 1 + rng.Intn(13)
			if n > len(rest) {
				n = len(rest)
			}
			require.NoError(t, w2.Write(rest[:n]))
			if rng.Intn(2) == 0 {
				require.NoError(t, w2.Flush())
			}
			rest = rest[n:]
		}
		require.NoError(t, w2.Close())

		assert.Equal(t, one.Bytes(), many.Bytes(), "width %d", width)
		assert.Equal(t, uint64(len(values)), w2.Count())
		assert.Equal(t, bitpack.PackedLen(uint64(len(values)), width), w2.Written())

		expected, _ := bitpack.NewArray(width, 0)
		require.NoError(t, expected.Append(values))
		assert.Equal(t, expected.Bytes(), one.Bytes(), "width %d", width)
	}
}

func TestWriter_OnEmitSeesEveryByte(t *testing.T) {
	var out, seen bytes.Buffer
	w, err := NewWriter(&out, 3, WithBufferSize(2), WithOnEmit(func(p []byte) { seen.Write(p) }))
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte{1, 2, 3, 4, 0, 1, 2}))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Write([]byte{4, 4}))
	require.NoError(t, w.Close())
	assert.Equal(t, out.Bytes(), seen.Bytes())
}

func TestWriter_WritePacked(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	src := randomValues(rng, 21, 3)
	packed, _ := bitpack.NewArray(3, 0)
	require.NoError(t, packed.Append(src))

	for _, prefix := range [][]byte{nil, {1}, {1, 2, 3, 4, 5, 6, 7, 0}} {
		var viaValues, viaPacked bytes.Buffer
		a, _ := NewWriter(&viaValues, 3)
		b, _ := NewWriter(&viaPacked, 3, WithBufferSize(2))
		require.NoError(t, a.Write(prefix))
		require.NoError(t, b.Write(prefix))
		require.NoError(t, a.Write(src))
		require.NoError(t, b.WritePacked(packed.Bytes(), packed.Len()))
		require.NoError(t, a.Write([]byte{7}))
		require.NoError(t, b.Write([]byte{7}))
		require.NoError(t, a.Close())
		require.NoError(t, b.Close())
		assert.Equal(t, viaValues.Bytes(), viaPacked.Bytes(), "prefix %v", prefix)
		assert.Equal(t, a.Count(), b.Count())
	}
}

func TestWriter_RejectsOutOfRange(t *testing.T) {
	w, _ := NewWriter(io.Discard, 2)
	assert.ErrorIs(t, w.Write([]byte{4}), bitpack.ErrValueOutOfRange)

	_, err := NewWriter(io.Discard, 0)
	assert.ErrorIs(t, err, bitpack.ErrInvalidWidth)
}

func TestWriter_ClosedAndShortWrite(t *testing.T) {
	w, _ := NewWriter(io.Discard, 2)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write([]byte{1}), ErrClosed)
	assert.NoError(t, w.Close())

	w, _ = NewWriter(shortWriter{}, 8)
	require.NoError(t, w.Write([]byte{1, 2, 3}))
	assert.ErrorIs(t, w.Close(), io.ErrShortWrite)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func TestSeekableReader(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, width := range []uint8{1, 3, 5, 8} {
		values := randomValues(rng, 200000, width)
		var buf bytes.Buffer
		w, _ := NewWriter(&buf, width)
		require.NoError(t, w.Write(values))
		require.NoError(t, w.Close())

		r, err := NewSeekableReader(bytes.NewReader(buf.Bytes()), w.Count(), width)
		require.NoError(t, err)
		assert.True(t, r.Seekable())

		for i := 0; i < 200; i++ {
			idx := uint64(rng.Intn(len(values)))
			require.NoError(t, r.Seek(idx))
			v, err := r.Read()
			require.NoError(t, err)
			require.Equal(t, values[idx], v)
		}

		require.NoError(t, r.Seek(1234))
		dst := make([]byte, 100010)
		n, err := r.ReadInto(dst, 10, 100000)
		require.NoError(t, err)
		assert.Equal(t, 100000, n)
		assert.Equal(t, values[1234:101234], dst[10:])
		assert.Equal(t, uint64(101234), r.Position())

		require.NoError(t, r.Seek(r.Count()))
		_, err = r.Read()
		assert.Equal(t, io.EOF, err)
		assert.Error(t, r.Seek(r.Count()+1))
	}
}

func TestSequentialReader(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	values := randomValues(rng, 150001, 3)
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 3)
	require.NoError(t, w.Write(values))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), w.Count(), 3)
	require.NoError(t, err)
	assert.False(t, r.Seekable())
	assert.ErrorIs(t, r.Seek(0), ErrNotSeekable)

	first := make([]byte, 10)
	_, err = r.ReadInto(first, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, values[:10], first)

	require.NoError(t, r.Skip(70000))
	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, values[70010], v)

	rest := make([]byte, len(values)-70011)
	_, err = r.ReadInto(rest, 0, len(rest))
	require.NoError(t, err)
	assert.Equal(t, values[70011:], rest)

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReader_TruncatedSource(t *testing.T) {
	values := bytes.Repeat([]byte{1, 2, 3}, 100)
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, 2)
	require.NoError(t, w.Write(values))
	require.NoError(t, w.Close())
	short := buf.Bytes()[:buf.Len()-5]

	seq, _ := NewReader(bytes.NewReader(short), w.Count(), 2)
	dst := make([]byte, len(values))
	_, err := seq.ReadInto(dst, 0, len(values))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	ra, _ := NewSeekableReader(bytes.NewReader(short), w.Count(), 2)
	require.NoError(t, ra.Seek(w.Count()-1))
	_, err = ra.Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// patternReaderAt serves a virtual file whose byte at offset o is byte(o*31+7).
type patternReaderAt struct{ size int64 }

func (p patternReaderAt) ReadAt(b []byte, off int64) (int, error) {
	if off >= p.size {
		return 0, io.EOF
	}
	n := 0
	for ; n < len(b) && off+int64(n) < p.size; n++ {
		b[n] = byte((off+int64(n))*31 + 7)
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func TestSeekableReader_BeyondUint32(t *testing.T) {
	const width = 3
	count := uint64(1) << 35
	src := patternReaderAt{size: int64(bitpack.PackedLen(count, width))}
	r, err := NewSeekableReader(src, count, width)
	require.NoError(t, err)

	for _, idx := range []uint64{1<<32 + 5, 1<<34 + 3, count - 1} {
		require.NoError(t, r.Seek(idx))
		got, err := r.Read()
		require.NoError(t, err)

		bit := idx * width
		lo := byte(int64(bit>>3)*31 + 7)
		hi := byte(int64(bit>>3+1)*31 + 7)
		want := bitpack.GetAt([]byte{lo, hi}, bit&7, width)
		assert.Equal(t, want, got, "index %d", idx)
	}
}

func TestSeekableReader_Reset(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const width = 3
	pack := func(values []byte) []byte {
		var buf bytes.Buffer
		w, _ := NewWriter(&buf, width)
		require.NoError(t, w.Write(values))
		require.NoError(t, w.Close())
		return buf.Bytes()
	}
	small := randomValues(rng, 7, width)
	large := randomValues(rng, 50000, width)

	r, err := NewSeekableReader(bytes.NewReader(pack(small)), uint64(len(small)), width)
	require.NoError(t, err)
	dst := make([]byte, len(large))
	_, err = r.ReadInto(dst, 0, len(small))
	require.NoError(t, err)
	assert.Equal(t, small, dst[:len(small)])

	r.Reset(bytes.NewReader(pack(large)), uint64(len(large)))
	assert.Equal(t, uint64(0), r.Position())
	require.NoError(t, r.Seek(100))
	n, err := r.ReadInto(dst, 0, len(large)-100)
	require.NoError(t, err)
	assert.Equal(t, large[100:], dst[:n])
}
