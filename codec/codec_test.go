package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notes struct {
	Text       string            `json:"text"`
	Provenance map[string]string `json:"provenance,omitempty"`
}

func TestCodecs_Interchangeable(t *testing.T) {
	in := notes{Text: "run 17, lane 2", Provenance: map[string]string{"source": "reads.fq"}}
	all := []Codec{GoJSON, Compact, Std}

	for _, enc := range all {
		data, err := enc.Marshal(in)
		require.NoError(t, err)
		for _, dec := range all {
			var out notes
			require.NoError(t, dec.Unmarshal(data, &out), "%s -> %s", enc.Name(), dec.Name())
			assert.Equal(t, in, out)
		}
	}
}

func TestCompact(t *testing.T) {
	data, err := Compact.Marshal(notes{Text: "x"})
	require.NoError(t, err)
	assert.False(t, bytes.ContainsRune(data, '\n'))

	data, err = GoJSON.Marshal(notes{Text: "x"})
	require.NoError(t, err)
	assert.True(t, bytes.ContainsRune(data, '\n'))
}

func TestByName(t *testing.T) {
	for _, c := range []Codec{GoJSON, Compact, Std} {
		got, err := ByName(c.Name())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, Default, c)

	_, err = ByName("msgpack")
	assert.Error(t, err)
}
