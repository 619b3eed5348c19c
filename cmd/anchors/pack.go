package main

import (
	"context"
	"os"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/fileio"
	"snarl_anchors/pkg/gfa"
	"snarl_anchors/pkg/graph"
)

var packFlags struct {
	gfa    string
	snarls string
	output string
}

// packCmd converts a GFA and its snarl decomposition to the binary graph
// the other subcommands load.
var packCmd = &cobra.Command{
	Use:     "pack",
	Short:   "Pack a GFA and its snarls into a binary graph",
	Example: "  anchors pack --gfa hprc.gfa.gz --snarls hprc.snarls.json --output hprc.bin",
	Args:    cobra.NoArgs,
	Run:     runPack,
}

func init() {
	f := packCmd.Flags()
	f.StringVar(&packFlags.gfa, "gfa", "", "GFA1 graph, optionally gzip or zstd compressed")
	f.StringVar(&packFlags.snarls, "snarls", "", "snarl records as JSON lines (vg snarls | vg view -R)")
	f.StringVar(&packFlags.output, "output", "graph.bin", "binary graph output path")
	packCmd.MarkFlagRequired("gfa")
	packCmd.MarkFlagRequired("snarls")
}

func runPack(cmd *cobra.Command, args []string) {
	start := time.Now()

	// Step 1: Parse GFA.
	log.Printf("Step 1: Parsing %s...", packFlags.gfa)
	r, err := fileio.Open(packFlags.gfa)
	if err != nil {
		log.Fatalf("Failed to open GFA: %v", err)
	}
	doc, err := gfa.Parse(context.Background(), r)
	r.Close()
	if err != nil {
		log.Fatalf("Failed to parse GFA: %v", err)
	}
	log.Printf("Parsed %d segments, %d links, %d paths", len(doc.Segments), len(doc.Links), len(doc.Paths))

	// Step 2: Parse snarls.
	log.Printf("Step 2: Parsing snarls from %s...", packFlags.snarls)
	r, err = fileio.Open(packFlags.snarls)
	if err != nil {
		log.Fatalf("Failed to open snarls: %v", err)
	}
	snarls, err := gfa.ParseSnarls(r)
	r.Close()
	if err != nil {
		log.Fatalf("Failed to parse snarls: %v", err)
	}
	log.Printf("Parsed %d snarls", len(snarls))

	// Step 3: Build graph.
	log.Printf("Step 3: Building graph...")
	g, err := graph.Build(doc, snarls)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	cs := graph.Components(g)
	log.Printf("Graph: %d nodes, %d edges, %d components (largest %d nodes, %d bp)",
		g.NumNodes, g.NumEdges, cs.Count, cs.LargestSize, cs.LargestBp)

	// Step 4: Serialize to binary.
	log.Printf("Step 4: Writing binary to %s...", packFlags.output)
	if err := graph.WriteBinary(packFlags.output, g); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	info, _ := os.Stat(packFlags.output)
	log.Printf("Done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), packFlags.output,
		float64(info.Size())/(1024*1024))
}
