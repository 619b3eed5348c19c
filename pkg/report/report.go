// Package report writes the tabular and JSON outputs of the anchor
// pipeline.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/extend"
)

const sizesHeader = "Sentinel_node\tsnarl_id\tAnchor_length\tAnchor_pos_in_ref_path\tAnchor_path\tAnchor_nodes_copypaste_bandage\tPaths_associated_with_anchor"

// WriteSizes writes one TSV row per anchor, ordered by sentinel.
func WriteSizes(w io.Writer, dict *anchor.Dictionary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, sizesHeader)
	for _, s := range dict.Sentinels() {
		for _, a := range dict.Lookup(s) {
			fmt.Fprintf(bw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\n",
				s, a.SnarlID, a.BpLength, a.GenomicPosition, a, a.BandageString(), strings.Join(a.ReferencePaths, ","))
		}
	}
	return bw.Flush()
}

// WriteBandage writes a Bandage colour CSV marking every anchor node red.
func WriteBandage(w io.Writer, dict *anchor.Dictionary) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range dict.All() {
		for _, n := range a.Nodes {
			if !seen[n.ID] {
				seen[n.ID] = true
				ids = append(ids, n.ID)
			}
		}
	}
	slices.Sort(ids)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Node,color")
	for _, id := range ids {
		fmt.Fprintf(bw, "%d,#FF0000\n", id)
	}
	return bw.Flush()
}

// Entry is one read of an anchor record. It renders as [read_id, strand,
// start, end] with strand 0 on the strand of the first matched read.
// Strand 1 coordinates count from the end of the read.
type Entry struct {
	ReadID     string
	Strand     int
	Start      int
	End        int
	ReadLength int // not rendered
}

func (e Entry) row() []any { return []any{e.ReadID, e.Strand, e.Start, e.End} }

func rows(entries []Entry) [][]any {
	out := make([][]any, len(entries))
	for i, e := range entries {
		out[i] = e.row()
	}
	return out
}

// newEncoder returns a JSON encoder that leaves the '<' and '>' of anchor
// paths unescaped.
func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func entries(a *anchor.Anchor) []Entry {
	out := make([]Entry, len(a.Reads))
	for i, r := range a.Reads {
		out[i] = Entry{ReadID: r.ReadID, Start: r.Start, End: r.End, ReadLength: r.ReadLength}
		if !r.RelativeStrand {
			out[i].Strand = 1
		}
	}
	return out
}

// WriteValidAnchors writes the reads of every anchor with more than depth
// reads as a JSON list of per-anchor read lists.
func WriteValidAnchors(w io.Writer, dict *anchor.Dictionary, depth int) (int, error) {
	valid := [][][]any{}
	for _, a := range dict.All() {
		if a.NumSequences() > depth {
			valid = append(valid, rows(entries(a)))
		}
	}
	return len(valid), newEncoder(w).Encode(valid)
}

// WriteCounts writes, per sentinel, the path, the genomic position and the
// number of matched reads of each anchor.
func WriteCounts(w io.Writer, dict *anchor.Dictionary) error {
	counts := make(map[string][][3]any, dict.Len())
	for _, s := range dict.Sentinels() {
		key := strconv.FormatInt(s, 10)
		for _, a := range dict.Lookup(s) {
			counts[key] = append(counts[key], [3]any{a.String(), a.GenomicPosition, a.NumSequences()})
		}
	}
	return newEncoder(w).Encode(counts)
}

// WriteAudit writes the coverage audit of an extender run.
func WriteAudit(w io.Writer, audit *extend.Audit) error {
	enc := newEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(audit)
}
