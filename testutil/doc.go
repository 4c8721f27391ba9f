// Package testutil generates deterministic sequence data for tests and
// benchmarks.
//
//	rng := testutil.NewRNG(seed)
//	records := rng.Records(alphabet.DNA, 1000, 0, 300, true)
//	f := feed.NewSliceFeed(alphabet.DNA, records)
package testutil
