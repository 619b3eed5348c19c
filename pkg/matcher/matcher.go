// Package matcher assigns aligned reads to anchors. A read is assigned to
// an anchor when its graph path spells the anchor around the sentinel node
// and its alignment is an exact match over the whole anchor span.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/gaf"
	"snarl_anchors/pkg/graph"
)

// Stats counts matcher outcomes.
type Stats struct {
	Alignments   int64
	Matches      int64
	Duplicates   int64 // reads already assigned to the anchor
	PathMismatch int64
	SeqMismatch  int64
}

// Matcher records read matches into a dictionary.
type Matcher struct {
	g    *graph.Graph
	dict *anchor.Dictionary
	cfg  config.Match

	alignments   atomic.Int64
	matches      atomic.Int64
	duplicates   atomic.Int64
	pathMismatch atomic.Int64
	seqMismatch  atomic.Int64
}

// New returns a matcher over dict. The graph provides node lengths.
func New(g *graph.Graph, dict *anchor.Dictionary, cfg config.Match) *Matcher {
	return &Matcher{g: g, dict: dict, cfg: cfg}
}

// Stats returns the counters accumulated so far.
func (m *Matcher) Stats() Stats {
	return Stats{
		Alignments:   m.alignments.Load(),
		Matches:      m.matches.Load(),
		Duplicates:   m.duplicates.Load(),
		PathMismatch: m.pathMismatch.Load(),
		SeqMismatch:  m.seqMismatch.Load(),
	}
}

// ProcessAlignment walks the read path and records the read on every
// sentinel whose anchors it matches, at most one anchor per sentinel. It
// returns the number of matches recorded. A node id missing from the
// graph is an error wrapping graph.ErrUnknownNode.
func (m *Matcher) ProcessAlignment(aln *gaf.Alignment) (int, error) {
	m.alignments.Add(1)
	recorded := 0
	walked := 0
	for pos, id := range aln.Nodes {
		length, err := m.g.NodeLength(id)
		if err != nil {
			return recorded, fmt.Errorf("read %s: %w", aln.ReadID, err)
		}
		for _, a := range m.dict.Lookup(id) {
			matched, added := m.match(aln, pos, walked, a)
			if added {
				recorded++
			}
			if matched {
				break
			}
		}
		walked += length
	}
	return recorded, nil
}

// match tries one candidate anchor. A match ends the search for this
// sentinel; added is false when the read was already recorded on it.
func (m *Matcher) match(aln *gaf.Alignment, pos, walked int, a *anchor.Anchor) (matched, added bool) {
	w, ok := VerifyPathConcordance(aln.Nodes, aln.Orientations, pos, a)
	if !ok {
		m.pathMismatch.Add(1)
		return false, false
	}
	ag, ok := VerifySequenceAgreement(walked-w.Before, walked+w.After, aln.Ops, aln.PathStart, aln.PathEnd)
	if !ok {
		m.seqMismatch.Add(1)
		return false, false
	}

	// Offsets are along the aligned strand; move them to the read as
	// stored in the FASTQ.
	base := aln.ReadStart
	if aln.Reverse {
		base = aln.ReadLength - aln.ReadEnd
	}
	rm := anchor.ReadMatch{
		ReadID:     aln.ReadID,
		Start:      base + ag.ReadStart,
		End:        base + ag.ReadEnd,
		CsLeft:     ag.CsLeft,
		CsRight:    ag.CsRight,
		MatchSlack: ag.CsLeft + ag.CsRight,
		ReadLength: aln.ReadLength,
	}
	if aln.Reverse {
		rm = rm.Mirror()
	}
	rm, ok = a.Record(rm, w.Concordant != aln.Reverse)
	if !ok {
		m.duplicates.Add(1)
		return true, false
	}
	m.matches.Add(1)
	log.Debug.Printf("matcher: read %s on %s [%d,%d) relative=%v", rm.ReadID, a, rm.Start, rm.End, rm.RelativeStrand)
	return true, true
}

// Run reads alignments from src and matches them on workers goroutines,
// or on the configured number when workers is zero. With one worker reads
// are processed in input order. The first error stops the run.
func (m *Matcher) Run(ctx context.Context, src gaf.Source, workers int) (Stats, error) {
	if workers < 1 {
		workers = max(m.cfg.Workers, 1)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	alns := make(chan *gaf.Alignment, workers*4)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for aln := range alns {
				if _, err := m.ProcessAlignment(aln); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	n := 0
read:
	for {
		aln, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(err)
			break
		}
		select {
		case alns <- aln:
		case <-ctx.Done():
			break read
		}
		n++
		if n%1_000_000 == 0 {
			log.Printf("matcher: %d alignments, %d matches (%v)", n, m.matches.Load(), time.Since(start))
		}
	}
	close(alns)
	wg.Wait()

	if firstErr != nil {
		return m.Stats(), firstErr
	}
	if err := ctx.Err(); err != nil {
		return m.Stats(), err
	}
	s := m.Stats()
	log.Printf("matcher: %d alignments, %d matches, %d duplicates (%v)", s.Alignments, s.Matches, s.Duplicates, time.Since(start))
	return s, nil
}
