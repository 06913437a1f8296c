package main

import (
	"errors"
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/metal"
	"github.com/hupe1980/metal/index"
)

// newIndexCmd is for building and saving an index of a FASTA reference
func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a meta-CpG index from a FASTA reference",
		Long: `Extract the CpGs of a FASTA reference, group them into meta-CpGs and index
the k-mers of their windows. The index is written to a file, or to the
configured store.`,
		Args:                       cobra.NoArgs,
		SuggestionsMinimumDistance: 2,
		RunE:                       a.runIndex,
	}

	f := cmd.Flags()
	f.StringP("ref", "r", "", "FASTA reference")
	f.StringP("out", "o", "", "index file, or blob name with --store")
	f.IntP("kmer-len", "k", index.DefaultKmerLen, "k-mer length (1..32)")
	f.IntP("read-len", "l", index.DefaultReadLen, "maximal read length")
	f.IntP("mismatches", "m", index.DefaultMismatches, "mismatches tolerated by the seed filter")
	f.Int("cutoff", index.DefaultKmerCutoff, "occurrence count above which a k-mer is a repeat")
	f.Int("hash-bits", index.DefaultHashBits, "log2 of the number of hash buckets")
	f.Bool("lossless", false, "keep repeats")
	f.String("compression", "lz4", "index compression: none, lz4 or zstd")
	f.IntP("threads", "t", runtime.GOMAXPROCS(0), "build goroutines")
	a.bindAll(f, "index")

	return cmd
}

func (a *app) runIndex(cmd *cobra.Command, _ []string) error {
	c := a.cfg.Index
	if c.Ref == "" || c.Out == "" {
		return errors.New("metal: --ref and --out are required")
	}
	comp, err := c.Codec()
	if err != nil {
		return err
	}
	opts, err := a.options(cmd, c.Threads)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ix, err := metal.BuildIndex(ctx, c.Ref, c.Params(), opts...)
	if err != nil {
		return err
	}
	if err := metal.SaveIndex(ctx, ix, c.Out, append(opts, metal.WithCompression(comp))...); err != nil {
		return err
	}

	s := ix.Stats()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "chromosomes\t%d\n", s.Chromosomes)
	fmt.Fprintf(w, "bases\t%d\n", s.GenomeBases)
	fmt.Fprintf(w, "cpgs\t%d\n", s.CpGs+s.StartCpGs)
	fmt.Fprintf(w, "meta-cpgs\t%d\n", s.MetaCpGs+s.StartMetaCpGs)
	fmt.Fprintf(w, "entries\t%d\n", s.Entries)
	fmt.Fprintf(w, "repeats removed\t%d\n", s.Blacklisted)
	fmt.Fprintf(w, "redundant removed\t%d\n", s.Redundant)
	fmt.Fprintf(w, "largest bucket\t%d\n", s.LargestBucket)
	return w.Flush()
}
