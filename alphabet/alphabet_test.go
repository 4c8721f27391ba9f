package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidths(t *testing.T) {
	assert.Equal(t, uint8(3), DNA.Width())
	assert.Equal(t, uint8(5), Protein.Width())
	assert.Equal(t, uint8(6), QualityWidth)
	assert.Equal(t, uint8(0), Unknown.Width())
}

func TestDNA_Codes(t *testing.T) {
	codes := DNA.EncodeAll(nil, []byte("NACGTacgtnUR"))
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 1, 2, 3, 4, 0, 4, 0}, codes)
	assert.Equal(t, "NACGTACGTNTN", string(DNA.DecodeAll(nil, codes)))
}

func TestProtein_Codes(t *testing.T) {
	for i := 0; i < len(proteinLetters); i++ {
		assert.Equal(t, byte(i), Protein.Encode(proteinLetters[i]))
		assert.Equal(t, proteinLetters[i], Protein.Decode(byte(i)))
	}
	assert.Equal(t, Protein.Encode('M'), Protein.Encode('m'))
	assert.Equal(t, byte(0), Protein.Encode('B'))
	assert.Equal(t, byte('X'), Protein.Decode(200))
}

func TestQuality(t *testing.T) {
	phred := EncodeQuality(nil, []byte("!+5I~"))
	assert.Equal(t, []byte{0, 10, 20, 40, 63}, phred)
	assert.Equal(t, "!+5I`", string(DecodeQuality(nil, phred)))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("DNA")
	require.NoError(t, err)
	assert.Equal(t, DNA, typ)

	typ, err = ParseType("aa")
	require.NoError(t, err)
	assert.Equal(t, Protein, typ)

	_, err = ParseType("rna-fold")
	assert.Error(t, err)
	assert.Equal(t, "protein", Protein.String())
}
