package main

import (
	"path/filepath"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"

	"snarl_anchors/pkg/fileio"
	"snarl_anchors/pkg/qc"
	"snarl_anchors/pkg/report"
)

var verifyFlags struct {
	graph string
	dict  string
	fastq string
}

// verifyCmd checks the read spans of a dictionary against the reads.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that all reads of an anchor spell the same sequence",
	Long: `Verify extracts every anchor span from the reads, reverse complementing reads
on the other strand, and reports anchors whose reads disagree or overlap.
Reads carrying at least one anchor are written to selected_reads.fastq.gz.`,
	Example: "  anchors verify --graph hprc.bin --dict run/final.dict --fastq HG002.fastq.gz --out run/",
	Args:    cobra.NoArgs,
	Run:     runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringVar(&verifyFlags.graph, "graph", "graph.bin", "packed graph")
	f.StringVar(&verifyFlags.dict, "dict", "final.dict", "dictionary with read assignments")
	f.StringVar(&verifyFlags.fastq, "fastq", "", "reads, optionally compressed")
	verifyCmd.MarkFlagRequired("fastq")
}

func runVerify(cmd *cobra.Command, args []string) {
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
	g := loadGraph(verifyFlags.graph)
	recs := report.Export(loadDictionary(verifyFlags.dict, g))

	// Step 2: Overlaps.
	log.Printf("Step 2: Checking %d anchors for overlapping spans...", len(recs))
	overlaps := qc.VerifyOverlaps(recs)

	// Step 3: Sequences.
	log.Printf("Step 3: Extracting anchor sequences from %s...", verifyFlags.fastq)
	in, err := fileio.Open(verifyFlags.fastq)
	if err != nil {
		log.Fatalf("Failed to open reads: %v", err)
	}
	defer in.Close()
	selected := filepath.Join(dir, "selected_reads.fastq.gz")
	out, err := fileio.Create(selected)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", selected, err)
	}
	rep, err := qc.VerifySequences(in, recs, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("Failed to verify sequences: %v", err)
	}

	log.Printf("Scanned %d reads, %d carry anchors; %d spans out of range", rep.Reads, rep.Selected, rep.OutOfRange)
	log.Printf("Checked %d anchors: %d disagree, %d overlapping pairs", rep.Checked, len(rep.Disagreeing), len(overlaps))
	log.Printf("Done in %s", time.Since(start).Round(time.Second))
	if len(rep.Disagreeing) > 0 || len(overlaps) > 0 {
		log.Fatalf("Verification failed")
	}
}
