// Package metal matches bisulfite sequencing reads against windows of a
// reference genome centered on CpG dinucleotides.
//
// # Quick Start
//
// Build an index once and save it:
//
//	ctx := context.Background()
//	ix, _ := metal.BuildIndex(ctx, "hg38.fa", index.DefaultParams())
//	_ = metal.SaveIndex(ctx, ix, "hg38.mtl", metal.WithCompression(persistence.CompressionZstd))
//
// Open it and align reads:
//
//	ix, _ := metal.OpenIndex(ctx, "hg38.mtl")
//	a, _ := metal.NewAligner(ix, metal.WithWorkers(16))
//	err := a.Align(ctx, "reads.fq", func(batch []reads.Read, results []match.Result) error {
//	    for i, r := range results {
//	        for _, c := range match.Candidates(ix, r, len(batch[i].Seq)) {
//	            fmt.Println(r.ID, ix.ChromName(c.Chrom), c.Pos)
//	        }
//	    }
//	    return nil
//	})
//
// # Storage
//
// Indexes are stored as local files by default. WithStore selects any
// blobstore.Store instead, such as Amazon S3 or MinIO:
//
//	store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("indexes/"))
//	ix, _ := metal.OpenIndex(ctx, "hg38.mtl", metal.WithStore(store))
//
// # Resource Control
//
// WithResourceController bounds IO bandwidth for index transfer, the number
// of read batches in flight and the memory they hold.
package metal
