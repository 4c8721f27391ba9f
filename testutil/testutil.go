package testutil

import (
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/hupe1980/seqstore/alphabet"
	"github.com/hupe1980/seqstore/feed"
)

const stream = 0x9e3779b97f4a7c15

// RNG generates reproducible sequencing data. It is safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	seed int64
	pcg  *rand.PCG
	r    *rand.Rand
}

// NewRNG returns an RNG seeded with seed.
func NewRNG(seed int64) *RNG {
	pcg := rand.NewPCG(uint64(seed), stream)
	return &RNG{seed: seed, pcg: pcg, r: rand.New(pcg)}
}

// Seed returns the seed the RNG was created with.
func (g *RNG) Seed() int64 { return g.seed }

// Reset rewinds the RNG to its seed.
func (g *RNG) Reset() {
	g.mu.Lock()
	g.pcg.Seed(uint64(g.seed), stream)
	g.mu.Unlock()
}

func (g *RNG) codes(n, size int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(g.r.IntN(size))
	}
	return out
}

// Residues returns n random residue codes of typ.
func (g *RNG) Residues(typ alphabet.Type, n int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.codes(n, typ.Size())
}

// Qualities returns n random phred values.
func (g *RNG) Qualities(n int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.codes(n, alphabet.QualitySize)
}

// Lengths returns count lengths in [minLen, maxLen]. About one in ten is
// forced to zero or to maxLen so chunk edges and empty records come up.
func (g *RNG) Lengths(count, minLen, maxLen int) []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]int, count)
	for i := range out {
		switch g.r.IntN(20) {
		case 0:
		case 1:
			out[i] = maxLen
		default:
			out[i] = minLen + g.r.IntN(maxLen-minLen+1)
		}
	}
	return out
}

// Records returns count random records with lengths in [minLen, maxLen].
func (g *RNG) Records(typ alphabet.Type, count, minLen, maxLen int, quality bool) []feed.Record {
	return g.RecordsWithLengths(typ, g.Lengths(count, minLen, maxLen), quality)
}

// RecordsWithLengths returns one record per length, named "r<i>".
func (g *RNG) RecordsWithLengths(typ alphabet.Type, lengths []int, quality bool) []feed.Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]feed.Record, len(lengths))
	for i, n := range lengths {
		out[i] = feed.Record{Name: "r" + strconv.Itoa(i), Sequence: g.codes(n, typ.Size())}
		if quality {
			out[i].Quality = g.codes(n, alphabet.QualitySize)
		}
	}
	return out
}
