// Package qc checks exported read assignments against the reads
// themselves and measures how much of the graph the alignments cover.
package qc

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/gaf"
	"snarl_anchors/pkg/graph"
	"snarl_anchors/pkg/report"
)

// Span is one anchor occurrence on a read, in the frame of its record.
type Span struct {
	Record     int // index into the checked records
	Strand     int
	Start      int
	End        int
	ReadLength int
}

// Forward returns the span in forward read coordinates.
func (s Span) Forward() (start, end int) {
	if s.Strand == 1 {
		return s.ReadLength - s.End, s.ReadLength - s.Start
	}
	return s.Start, s.End
}

// Overlap is a pair of anchor spans that intersect on one read.
type Overlap struct {
	ReadID        string
	First, Second Span
}

func spansByRead(recs []report.Record) map[string][]Span {
	out := make(map[string][]Span)
	for i, rec := range recs {
		for _, e := range rec.Reads {
			out[e.ReadID] = append(out[e.ReadID], Span{Record: i, Strand: e.Strand, Start: e.Start, End: e.End, ReadLength: e.ReadLength})
		}
	}
	return out
}

// VerifyOverlaps reports anchors whose spans overlap within a read.
// Distinct anchors of one read must cover disjoint bases. Strand 1 spans
// are mapped to forward coordinates before comparing.
func VerifyOverlaps(recs []report.Record) []Overlap {
	var out []Overlap
	byRead := spansByRead(recs)
	ids := make([]string, 0, len(byRead))
	for id := range byRead {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		spans := byRead[id]
		slices.SortStableFunc(spans, func(a, b Span) int {
			as, _ := a.Forward()
			bs, _ := b.Forward()
			return as - bs
		})
		var cur Span
		curEnd := 0
		for i, s := range spans {
			start, end := s.Forward()
			if i == 0 || start >= curEnd {
				cur, curEnd = s, end
				continue
			}
			out = append(out, Overlap{ReadID: id, First: cur, Second: s})
			cs, ce := cur.Forward()
			log.Error.Printf("qc: read %s: anchor %d [%d,%d) overlaps anchor %d [%d,%d) on the forward strand",
				id, cur.Record, cs, ce, s.Record, start, end)
		}
	}
	return out
}

// SequenceReport summarizes VerifySequences.
type SequenceReport struct {
	Reads       int // FASTQ records scanned
	Selected    int // records carrying at least one anchor
	OutOfRange  int // spans past the end of their read
	Checked     int // anchors with at least one extracted sequence
	Disagreeing []int
}

// VerifySequences streams a FASTQ and extracts the bases of every anchor
// span, reverse complemented for strand 1. All reads of an anchor must
// spell the same sequence. Reads carrying anchors are copied to selected
// when it is not nil.
func VerifySequences(in io.Reader, recs []report.Record, selected io.Writer) (SequenceReport, error) {
	var rep SequenceReport
	byRead := spansByRead(recs)
	seqs := make([][]string, len(recs))

	var w *fastq.Writer
	if selected != nil {
		w = fastq.NewWriter(selected)
	}
	r := fastq.NewReader(in, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	for {
		s, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read fastq: %w", err)
		}
		rep.Reads++
		q := s.(*linear.QSeq)
		spans, ok := byRead[readName(q.Name())]
		if !ok {
			continue
		}
		rep.Selected++
		if w != nil {
			if _, err := w.Write(q); err != nil {
				return rep, fmt.Errorf("write fastq: %w", err)
			}
		}

		fwd := letters(q.Seq)
		var rev string
		for _, sp := range spans {
			if sp.Start < 0 || sp.End > len(fwd) {
				rep.OutOfRange++
				log.Error.Printf("qc: read %s has length %d but anchor span [%d,%d)", q.Name(), len(fwd), sp.Start, sp.End)
				continue
			}
			src := fwd
			if sp.Strand == 1 {
				if rev == "" {
					q.RevComp()
					rev = letters(q.Seq)
				}
				src = rev
			}
			seqs[sp.Record] = append(seqs[sp.Record], src[sp.Start:sp.End])
		}
	}

	for i, list := range seqs {
		if len(list) == 0 {
			continue
		}
		rep.Checked++
		for _, s := range list[1:] {
			if s != list[0] {
				rep.Disagreeing = append(rep.Disagreeing, i)
				log.Error.Printf("qc: reads of anchor %s do not agree: %q", recs[i].Path, list)
				break
			}
		}
	}
	return rep, nil
}

// readName drops anything after the first blank of a FASTQ name.
func readName(name string) string {
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		return name[:i]
	}
	return name
}

func letters(ql alphabet.QLetters) string {
	b := make([]byte, len(ql))
	for i, l := range ql {
		b[i] = byte(l.L)
	}
	return string(b)
}

// Coverage is the result of GraphCoverage.
type Coverage struct {
	Alignments int
	Nodes      map[int64]int // alignments visiting each node
	CoveredBp  int64         // bases of nodes visited by at least MinCoverage alignments
}

// GraphCoverage counts node visits over all alignments of src and sums
// the length of the nodes visited at least minCoverage times.
func GraphCoverage(g *graph.Graph, src gaf.Source, minCoverage int) (Coverage, error) {
	c := Coverage{Nodes: make(map[int64]int)}
	for {
		aln, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c, err
		}
		c.Alignments++
		for _, id := range aln.Nodes {
			c.Nodes[id]++
		}
	}
	for id, n := range c.Nodes {
		if n < minCoverage {
			continue
		}
		length, err := g.NodeLength(id)
		if err != nil {
			return c, err
		}
		c.CoveredBp += int64(length)
	}
	return c, nil
}
