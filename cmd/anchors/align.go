package main

import (
	"context"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/fileio"
	"snarl_anchors/pkg/gaf"
	"snarl_anchors/pkg/matcher"
	"snarl_anchors/pkg/qc"
	"snarl_anchors/pkg/report"
)

var alignFlags struct {
	graph string
	dict  string
	gaf   string
}

// alignCmd assigns aligned reads to the anchors of a dictionary.
var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Assign GAF alignments to anchors",
	Long: `Align reads every alignment of a GAF and records it on the first anchor of
each sentinel whose path and exact-match span it covers.

Writes matched.dict, anchor_counts.json, valid_anchors.json and params.toml
to the output directory.`,
	Example: "  anchors align --graph hprc.bin --dict run/anchors.dict --gaf HG002.gaf.gz --out run/",
	Args:    cobra.NoArgs,
	Run:     runAlign,
}

func init() {
	f := alignCmd.Flags()
	f.StringVar(&alignFlags.graph, "graph", "graph.bin", "packed graph")
	f.StringVar(&alignFlags.dict, "dict", "anchors.dict", "dictionary written by build")
	f.StringVar(&alignFlags.gaf, "gaf", "", "GAF alignments with cs tags, optionally compressed")
	alignCmd.MarkFlagRequired("gaf")

	def := defaults
	f.Int("min-mapq", def.Match.MinMapQ, "skip alignments with lower mapping quality")
	f.Int("min-cs-length", def.Match.MinCsLength, "skip alignments with a shorter cs tag")
	f.Int("workers", def.Match.Workers, "parallel alignment workers; 1 keeps input order")
	f.Int("reads-depth", def.Report.ReadsDepth, "valid anchors need more reads than this")
	bind("match.min_mapq", f.Lookup("min-mapq"))
	bind("match.min_cs_length", f.Lookup("min-cs-length"))
	bind("match.workers", f.Lookup("workers"))
	bind("report.reads_depth", f.Lookup("reads-depth"))
}

func runAlign(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}
	dir, err := outDir(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	start := time.Now()

	// Step 1: Load graph and dictionary.
	g := loadGraph(alignFlags.graph)
	dict := loadDictionary(alignFlags.dict, g)

	// Step 2: Match alignments.
	log.Printf("Step 2: Matching %s with %d workers...", alignFlags.gaf, cfg.Match.Workers)
	r, err := fileio.Open(alignFlags.gaf)
	if err != nil {
		log.Fatalf("Failed to open GAF: %v", err)
	}
	defer r.Close()
	src := gaf.NewReader(r, gaf.Filter{MinMapQ: cfg.Match.MinMapQ, MinCsLength: cfg.Match.MinCsLength})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	t := time.Now()
	stats, err := matcher.New(g, dict, cfg.Match).Run(ctx, src, cfg.Match.Workers)
	if err != nil {
		log.Fatalf("Failed to match alignments: %v", err)
	}
	parsed, skipped := src.Counts()
	log.Printf("Matched %d of %d alignments (%d skipped by filters, %d path mismatches, %d sequence mismatches, %d duplicates) in %s",
		stats.Matches, parsed, skipped, stats.PathMismatch, stats.SeqMismatch, stats.Duplicates,
		time.Since(t).Round(time.Millisecond))

	// Step 3: Check read spans.
	log.Printf("Step 3: Checking anchor overlaps within reads...")
	if overlaps := qc.VerifyOverlaps(report.Export(dict)); len(overlaps) > 0 {
		log.Error.Printf("%d overlapping anchor pairs", len(overlaps))
	}

	// Step 4: Write outputs.
	log.Printf("Step 4: Writing outputs to %s...", dir)
	out := filepath.Join(dir, "matched.dict")
	if err := anchor.WriteDictionaryFile(out, dict, g.Fingerprint()); err != nil {
		log.Fatalf("Failed to write dictionary: %v", err)
	}
	if err := writeFile(filepath.Join(dir, "anchor_counts.json"), func(w io.Writer) error {
		return report.WriteCounts(w, dict)
	}); err != nil {
		log.Fatalf("%v", err)
	}
	var valid int
	if err := writeFile(filepath.Join(dir, "valid_anchors.json"), func(w io.Writer) (err error) {
		valid, err = report.WriteValidAnchors(w, dict, cfg.Report.ReadsDepth)
		return err
	}); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("%d anchors with more than %d reads", valid, cfg.Report.ReadsDepth)

	log.Printf("Done in %s. Dictionary: %s", time.Since(start).Round(time.Second), out)
}
