// Package match aligns bisulfite reads against an index.Index.
//
// Each read is processed in both orientations in three stages:
//
//  1. Seeding: every k-mer window of the read is hashed over the reduced
//     alphabet and every entry of its bucket becomes a seed for that offset.
//  2. Heuristic pruning: a meta-CpG survives only if at least
//     L-k+1-k*M distinct offsets produced a seed for it.
//  3. Verification: the surviving seeds are compared bit by bit against the
//     reference k-mer they resolve to. A read T matches a reference C.
//
// The Engine runs reads on a fixed pool of workers. Each worker owns one
// scratch buffer that is reused across reads.
package match
