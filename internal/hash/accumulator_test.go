package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_MatchesOneShot(t *testing.T) {
	data := []byte("ACGTACGTNNNNACGT")

	var acc Accumulator
	for i := 0; i < len(data); i += 3 {
		end := i + 3
		if end > len(data) {
			end = len(data)
		}
		acc = acc.Add(data[i:end])
	}

	assert.Equal(t, CRC32C(data), acc.Sum())
	assert.Equal(t, uint64(len(data)), acc.Bytes())
	assert.True(t, acc.Equal(CRC32C(data), uint64(len(data))))
}

func TestAccumulator_OrderSensitive(t *testing.T) {
	var a, b Accumulator
	a = a.Add([]byte("AC")).Add([]byte("GT"))
	b = b.Add([]byte("GT")).Add([]byte("AC"))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestAccumulator_IsAValue(t *testing.T) {
	var base Accumulator
	base = base.Add([]byte("x"))
	next := base.Add([]byte("y"))
	assert.Equal(t, uint64(1), base.Bytes())
	assert.Equal(t, uint64(2), next.Bytes())
	assert.Equal(t, next, base.Add([]byte("y")))
}
