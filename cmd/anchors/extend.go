package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/extend"
	"snarl_anchors/pkg/report"
)

var extendFlags struct {
	graph string
	dict  string
}

// extendCmd extends and merges the read-supported anchors of a matched
// dictionary.
var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Extend short anchors and merge adjacent ones using read evidence",
	Long: `Extend grows anchors shorter than --min-anchor-length into neighbouring nodes
while their reads still cover the added bases, then merges anchors of
adjacent snarls that share enough reads.

Writes final.dict, anchors_export.jsonl, coverage_audit.json,
anchors_sizes.diff, anchor_linkage.tsv and params.toml to the output
directory.`,
	Example: "  anchors extend --graph hprc.bin --dict run/matched.dict --out run/",
	Args:    cobra.NoArgs,
	Run:     runExtend,
}

func init() {
	f := extendCmd.Flags()
	f.StringVar(&extendFlags.graph, "graph", "graph.bin", "packed graph")
	f.StringVar(&extendFlags.dict, "dict", "matched.dict", "dictionary written by align")

	def := defaults
	f.Int("min-length", def.Extend.MinAnchorLength, "extend anchors shorter than this many bp")
	f.Int("min-reads", def.Extend.MinReadSupport, "ignore anchors with fewer reads")
	f.Float64("drop-fraction", def.Extend.DropFraction, "fraction of reads a step may drop")
	f.Int("min-coverage", def.Extend.MinCoverage, "reads an anchor must keep after a step")
	f.Int("min-common-reads", def.Extend.MinCommonReads, "merges need more shared reads than this")
	f.Int("link-min-shared", def.Report.LinkMinShared, "linkage groups need more shared reads than this")
	bind("extend.min_anchor_length", f.Lookup("min-length"))
	bind("extend.min_read_support", f.Lookup("min-reads"))
	bind("extend.drop_fraction", f.Lookup("drop-fraction"))
	bind("extend.min_coverage", f.Lookup("min-coverage"))
	bind("extend.min_common_reads", f.Lookup("min-common-reads"))
	bind("report.link_min_shared", f.Lookup("link-min-shared"))
}

func runExtend(cmd *cobra.Command, args []string) {
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
	g := loadGraph(extendFlags.graph)
	dict := loadDictionary(extendFlags.dict, g)

	var before strings.Builder
	if err := report.WriteSizes(&before, dict.Filter(func(a *anchor.Anchor) bool {
		return a.NumSequences() >= cfg.Extend.MinReadSupport
	})); err != nil {
		log.Fatalf("%v", err)
	}

	// Step 2: Extend and merge.
	log.Printf("Step 2: Extending anchors shorter than %d bp...", cfg.Extend.MinAnchorLength)
	res, err := extend.New(g, cfg.Extend).Run(dict)
	if err != nil {
		log.Fatalf("Failed to extend anchors: %v", err)
	}
	s := res.Stats
	log.Printf("%d anchors in %d snarls (%d heterozygous): %d steps, %d merges, %d abandoned, %d reads dropped, %d snarls still short",
		s.Anchors, s.Snarls, s.Heterozygous, s.Steps, s.Merges, s.MergesAbandoned, s.DroppedReads, s.Short)

	// Step 3: Link anchors through shared reads.
	log.Printf("Step 3: Linking anchors sharing more than %d reads...", cfg.Report.LinkMinShared)
	groups := report.Link(res.Dictionary, cfg.Report.LinkMinShared)
	log.Printf("%d linkage groups", len(groups))

	// Step 4: Write outputs.
	log.Printf("Step 4: Writing outputs to %s...", dir)
	out := filepath.Join(dir, "final.dict")
	if err := anchor.WriteDictionaryFile(out, res.Dictionary, g.Fingerprint()); err != nil {
		log.Fatalf("Failed to write dictionary: %v", err)
	}
	var after strings.Builder
	if err := report.WriteSizes(&after, res.Dictionary); err != nil {
		log.Fatalf("%v", err)
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"anchors_sizes.tsv", func(w io.Writer) error {
			_, err := io.WriteString(w, after.String())
			return err
		}},
		{"anchors_export.jsonl", func(w io.Writer) error {
			return report.WriteExport(w, report.Export(res.Dictionary))
		}},
		{"coverage_audit.json", func(w io.Writer) error {
			return report.WriteAudit(w, res.Audit)
		}},
		{"anchor_linkage.tsv", func(w io.Writer) error {
			return report.WriteLinkage(w, groups)
		}},
	}
	for _, o := range outputs {
		if err := writeFile(filepath.Join(dir, o.name), o.write); err != nil {
			log.Fatalf("%v", err)
		}
	}

	diff, err := report.Diff(before.String(), after.String(), "before/anchors_sizes.tsv", "after/anchors_sizes.tsv")
	if err != nil {
		log.Fatalf("Failed to diff sizes: %v", err)
	}
	added, removed := report.DiffStat(diff)
	log.Printf("Sizes report: +%d -%d lines", added, removed)
	if err := os.WriteFile(filepath.Join(dir, "anchors_sizes.diff"), []byte(diff), 0o644); err != nil {
		log.Fatalf("Failed to write diff: %v", err)
	}

	log.Printf("Done in %s. Dictionary: %s", time.Since(start).Round(time.Second), out)
}
