package main

import (
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/fileio"
	"snarl_anchors/pkg/gaf"
	"snarl_anchors/pkg/qc"
)

var coverageFlags struct {
	graph string
	gaf   string
}

// coverageCmd reports how much of the graph the alignments visit.
var coverageCmd = &cobra.Command{
	Use:     "coverage",
	Short:   "Report graph coverage of a GAF",
	Example: "  anchors coverage --graph hprc.bin --gaf HG002.gaf.gz --min-node-coverage 5",
	Args:    cobra.NoArgs,
	Run:     runCoverage,
}

func init() {
	f := coverageCmd.Flags()
	f.StringVar(&coverageFlags.graph, "graph", "graph.bin", "packed graph")
	f.StringVar(&coverageFlags.gaf, "gaf", "", "GAF alignments, optionally compressed")
	coverageCmd.MarkFlagRequired("gaf")

	f.Int("min-node-coverage", defaults.Report.MinNodeCoverage, "count nodes visited at least this often")
	bind("report.min_node_coverage", f.Lookup("min-node-coverage"))
}

func runCoverage(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}
	start := time.Now()

	g := loadGraph(coverageFlags.graph)

	log.Printf("Counting node visits in %s...", coverageFlags.gaf)
	r, err := fileio.Open(coverageFlags.gaf)
	if err != nil {
		log.Fatalf("Failed to open GAF: %v", err)
	}
	defer r.Close()
	// Same filter as align, so coverage describes the alignments the matcher sees.
	src := gaf.NewReader(r, gaf.Filter{MinMapQ: cfg.Match.MinMapQ, MinCsLength: cfg.Match.MinCsLength})
	c, err := qc.GraphCoverage(g, src, cfg.Report.MinNodeCoverage)
	if err != nil {
		log.Fatalf("Failed to compute coverage: %v", err)
	}

	var total uint64
	for _, l := range g.Length {
		total += uint64(l)
	}
	pct := 0.0
	if total > 0 {
		pct = float64(c.CoveredBp) / float64(total) * 100
	}
	log.Printf("%d alignments visit %d of %d nodes", c.Alignments, len(c.Nodes), g.NumNodes)
	log.Printf("%d of %d bp (%.1f%%) on nodes with at least %d alignments",
		c.CoveredBp, total, pct, cfg.Report.MinNodeCoverage)
	log.Printf("Done in %s", time.Since(start).Round(time.Second))
}
