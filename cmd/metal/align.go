package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hupe1980/metal"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/match"
	"github.com/hupe1980/metal/reads"
)

const (
	alignHeader = "read\tchrom\tpos\tstrand\trevcomp\tseeds\n"
	statsHeader = "read\tlen\tfwd_seeded\tfwd_pruned\tfwd_verified\trev_seeded\trev_pruned\trev_verified\tmicros\n"
)

// newAlignCmd is for matching a read file against a saved index
func newAlignCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Match bisulfite reads against an index",
		Long: `Stream a FASTQ or FASTA file through the match engine and write the best
placement of every read as TSV: read id, chromosome, 0-based position,
strand of the reference, whether the reverse complement of the read
matched, and the number of supporting seeds. Unmatched reads are written
with "*" placeholders.`,
		Args:                       cobra.NoArgs,
		SuggestionsMinimumDistance: 2,
		RunE:                       a.runAlign,
	}

	f := cmd.Flags()
	f.StringP("index", "x", "", "index file, or blob name with --store")
	f.StringP("reads", "i", "", "FASTQ or FASTA reads")
	f.StringP("out", "o", "-", "output TSV, - for stdout")
	f.String("stats", "", "write per-read seed statistics to this TSV")
	f.IntP("threads", "t", runtime.GOMAXPROCS(0), "match goroutines")
	f.IntP("batch-size", "b", reads.DefaultBatchSize, "reads per batch")
	f.BoolP("all", "a", false, "write every candidate placement")
	a.bindAll(f, "align")

	return cmd
}

func (a *app) runAlign(cmd *cobra.Command, _ []string) (err error) {
	c := a.cfg.Align
	if c.Index == "" || c.Reads == "" {
		return errors.New("metal: --index and --reads are required")
	}
	opts, err := a.options(cmd, c.Threads)
	if err != nil {
		return err
	}

	out, closeOut, err := create(cmd.OutOrStdout(), c.Out)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeOut()) }()

	metrics := &metal.BasicMetricsCollector{}
	var collector metal.MetricsCollector = metrics
	if c.Stats != "" {
		sw, closeStats, serr := create(nil, c.Stats)
		if serr != nil {
			return serr
		}
		defer func() { err = errors.Join(err, closeStats()) }()
		st := newStatsWriter(metrics, sw)
		defer func() { err = errors.Join(err, st.err) }()
		collector = st
	}
	opts = append(opts, metal.WithMetricsCollector(collector))

	ctx := cmd.Context()
	ix, err := metal.OpenIndex(ctx, c.Index, opts...)
	if err != nil {
		return err
	}
	defer metal.CloseIndex(ix, opts...)

	aligner, err := metal.NewAligner(ix, append(opts, metal.WithBatchSize(c.BatchSize))...)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(out, alignHeader); err != nil {
		return err
	}
	err = aligner.Align(ctx, c.Reads, func(batch []reads.Read, results []match.Result) error {
		for i, r := range results {
			if err := writeResult(out, ix, r, len(batch[i].Seq), c.All); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s := metrics.GetStats()
	a.log.InfoContext(ctx, "alignment summary",
		"reads", s.Reads,
		"short", s.ShortReads,
		"matched", s.BatchMatched,
		"seeded", s.Seeded,
		"pruned", s.Pruned,
		"verified", s.Verified,
	)
	return nil
}

func writeResult(w io.Writer, ix *index.Index, r match.Result, readLen int, all bool) error {
	cands := match.Candidates(ix, r, readLen)
	if len(cands) == 0 {
		_, err := fmt.Fprintf(w, "%s\t*\t-1\t*\t*\t0\n", r.ID)
		return err
	}
	if !all {
		cands = cands[:1]
	}
	for _, c := range cands {
		strand := "+"
		if !c.Forward {
			strand = "-"
		}
		rc := 0
		if c.Reverse {
			rc = 1
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\n", r.ID, ix.ChromName(c.Chrom), c.Pos, strand, rc, c.Seeds); err != nil {
			return err
		}
	}
	return nil
}

// create opens path for buffered writing; "-" or "" selects stdout.
func create(stdout io.Writer, path string) (*bufio.Writer, func() error, error) {
	if (path == "" || path == "-") && stdout != nil {
		w := bufio.NewWriter(stdout)
		return w, w.Flush, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		return errors.Join(w.Flush(), f.Close())
	}, nil
}

// statsWriter records per-read statistics as TSV lines next to the
// aggregate metrics. RecordRead is called from the match workers.
type statsWriter struct {
	*metal.BasicMetricsCollector

	mu  sync.Mutex
	w   io.Writer
	err error
}

func newStatsWriter(m *metal.BasicMetricsCollector, w io.Writer) *statsWriter {
	s := &statsWriter{BasicMetricsCollector: m, w: w}
	_, s.err = io.WriteString(w, statsHeader)
	return s
}

func (s *statsWriter) RecordRead(rs match.ReadStats) {
	s.BasicMetricsCollector.RecordRead(rs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		rs.ID, rs.Len,
		rs.Forward.Seeded, rs.Forward.Pruned, rs.Forward.Verified,
		rs.Reverse.Seeded, rs.Reverse.Pruned, rs.Reverse.Verified,
		rs.Duration.Microseconds(),
	)
}
