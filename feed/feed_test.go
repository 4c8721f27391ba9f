package feed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFASTA_WrappedRecords(t *testing.T) {
	in := ">r1 first read\nACGT\nAC\n\n>r2\n>r3\nnnGT\n"
	recs, err := Collect(NewFASTA(strings.NewReader(in), alphabet.DNA))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "r1 first read", recs[0].Name)
	assert.Equal(t, "ACGTAC", string(alphabet.DNA.DecodeAll(nil, recs[0].Sequence)))
	assert.Nil(t, recs[0].Quality)
	assert.Empty(t, recs[1].Sequence)
	assert.Equal(t, "NNGT", string(alphabet.DNA.DecodeAll(nil, recs[2].Sequence)))
}

func TestFASTA_Malformed(t *testing.T) {
	f := NewFASTA(strings.NewReader("ACGT\n"), alphabet.DNA)
	assert.False(t, f.Advance())
	assert.ErrorIs(t, f.Err(), ErrFormat)
}

func TestFASTQ_Records(t *testing.T) {
	in := "@q1\nACGT\n+\nII#!\n@q2\nAC\nGT\n+q2\n+5\n5+\n@empty\n\n+\n\n"
	f := NewFASTQ(strings.NewReader(in), alphabet.DNA)
	assert.True(t, f.HasQualityData())

	recs, err := Collect(f)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []byte{40, 40, 2, 0}, recs[0].Quality)
	assert.Equal(t, "ACGT", string(alphabet.DNA.DecodeAll(nil, recs[1].Sequence)))
	assert.Equal(t, []byte{10, 20, 20, 10}, recs[1].Quality)
	assert.Equal(t, "empty", recs[2].Name)
	assert.Empty(t, recs[2].Sequence)
	for _, r := range recs {
		require.NoError(t, r.Validate(alphabet.DNA))
	}
}

func TestFASTQ_Malformed(t *testing.T) {
	cases := map[string]string{
		"no header":     "ACGT\n+\nIIII\n",
		"short quality": "@q\nACGT\n+\nII\n",
		"id mismatch":   "@q\nACGT\n+other\nIIII\n",
		"long quality":  "@q\nACGT\n+\nIIIII\n",
		"missing plus":  "@q\nACGT\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := NewFASTQ(strings.NewReader(in), alphabet.DNA)
			assert.False(t, f.Advance())
			assert.ErrorIs(t, f.Err(), ErrFormat)
		})
	}
}

func TestOpenFile_DetectsFormatAndGzip(t *testing.T) {
	dir := t.TempDir()

	fq := filepath.Join(dir, "reads.fq.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("\n@q1\nMKV\n+\n!!!\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(fq, buf.Bytes(), 0o644))

	f, err := OpenFile(fq, alphabet.Protein)
	require.NoError(t, err)
	recs, err := Collect(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Len(t, recs, 1)
	assert.Equal(t, "MKV", string(alphabet.Protein.DecodeAll(nil, recs[0].Sequence)))

	fa := filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(fa, []byte(">chr1\nACGT\n"), 0o644))
	f, err = OpenFile(fa, alphabet.DNA)
	require.NoError(t, err)
	assert.False(t, f.HasQualityData())
	require.NoError(t, f.Close())

	bad := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello"), 0o644))
	_, err = OpenFile(bad, alphabet.DNA)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSliceFeed(t *testing.T) {
	f := FromLetters(alphabet.DNA, "ACGT", "", "GG")
	assert.Equal(t, "", f.Name(), "unpositioned")

	require.True(t, f.Advance())
	assert.Equal(t, "seq0", f.Name())
	assert.Equal(t, 4, f.CurrentLength())
	assert.Nil(t, f.QualityData())
	require.True(t, f.Advance())
	assert.Equal(t, 0, f.CurrentLength())
	require.True(t, f.Advance())
	assert.False(t, f.Advance())
	assert.False(t, f.Advance())
	assert.NoError(t, f.Err())

	bad := Record{Name: "x", Sequence: []byte{7}}
	assert.Error(t, bad.Validate(alphabet.DNA))
	assert.Error(t, Record{Sequence: []byte{1}, Quality: []byte{}}.Validate(alphabet.DNA))
}
