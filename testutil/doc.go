// Package testutil provides test helpers for metal.
//
// This package is intended for use in tests and benchmarks only. It
// generates reproducible random references, plants repeats and CpG sites,
// and simulates bisulfite-converted reads.
//
//	rng := testutil.NewRNG(seed)
//	ref := rng.Sequence(10_000)
//	read := testutil.Convert(ref[100:250], true)
package testutil
