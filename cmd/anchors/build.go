package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/builder"
	"snarl_anchors/pkg/report"
)

var buildGraph string

// buildCmd derives the anchor dictionary of a packed graph.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the anchor dictionary from the leaf snarls of a graph",
	Long: `Build walks every reference path through every leaf snarl and keeps the
distinct traversals as candidate anchors, keyed by their sentinel node.

Writes anchors.dict, anchors_sizes.tsv, anchors_bandage.csv and params.toml
to the output directory.`,
	Example: "  anchors build --graph hprc.bin --reference CHM13 --out run/",
	Args:    cobra.NoArgs,
	Run:     runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildGraph, "graph", "graph.bin", "packed graph")
	buildCmd.MarkFlagRequired("graph")

	def := defaults.Build
	f.Int("min-anchor-length", def.MinAnchorLength, "target anchor length in bp for boundary extension")
	f.Int("min-nodes", def.MinNodesInAnchor, "minimum number of nodes in an anchor")
	f.Int("max-paths", def.MaxPathsInSnarl, "drop snarls with more distinct traversals")
	f.Int("max-snarl-nodes", def.MaxNodesInSnarl, "skip snarls with more interior nodes")
	f.String("reference", def.ReferencePathHint, "substring naming the reference path for positions")
	f.Bool("extend-boundaries", def.ExtendBoundaries, "move short snarl boundaries outwards")
	f.Int("workers", def.Workers, "parallel snarl workers")
	bind("build.min_anchor_length", f.Lookup("min-anchor-length"))
	bind("build.min_nodes_in_anchor", f.Lookup("min-nodes"))
	bind("build.max_paths_in_snarl", f.Lookup("max-paths"))
	bind("build.max_nodes_in_snarl", f.Lookup("max-snarl-nodes"))
	bind("build.reference_path_hint", f.Lookup("reference"))
	bind("build.extend_boundaries", f.Lookup("extend-boundaries"))
	bind("build.workers", f.Lookup("workers"))
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}
	dir, err := outDir(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	start := time.Now()

	// Step 1: Load graph.
	g := loadGraph(buildGraph)

	// Step 2: Build dictionary.
	log.Printf("Step 2: Building anchors with %d workers...", cfg.Build.Workers)
	t := time.Now()
	b := builder.New(g, cfg.Build)
	dict, stats, err := b.Build(context.Background())
	if err != nil {
		log.Fatalf("Failed to build anchors: %v", err)
	}
	log.Printf("Built %d anchors from %d leaf snarls (%d too large, %d ambiguous, %d extended) in %s",
		stats.Anchors, stats.LeafSnarls, stats.SkippedLarge, stats.Ambiguous, stats.Extended,
		time.Since(t).Round(time.Millisecond))

	// Step 3: Positions on the reference path.
	log.Printf("Step 3: Placing anchors on %s...", cfg.Build.ReferencePathHint)
	b.AddPositions(dict)

	// Step 4: Write outputs.
	log.Printf("Step 4: Writing outputs to %s...", dir)
	out := filepath.Join(dir, "anchors.dict")
	if err := anchor.WriteDictionaryFile(out, dict, g.Fingerprint()); err != nil {
		log.Fatalf("Failed to write dictionary: %v", err)
	}
	if err := writeFile(filepath.Join(dir, "anchors_sizes.tsv"), func(w io.Writer) error {
		return report.WriteSizes(w, dict)
	}); err != nil {
		log.Fatalf("%v", err)
	}
	if err := writeFile(filepath.Join(dir, "anchors_bandage.csv"), func(w io.Writer) error {
		return report.WriteBandage(w, dict)
	}); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("Done in %s. Dictionary: %s", time.Since(start).Round(time.Second), out)
}
