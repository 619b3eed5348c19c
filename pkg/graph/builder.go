package graph

import (
	"fmt"
	"sort"

	"snarl_anchors/pkg/gfa"
)

// Build creates a CSR Graph from a parsed GFA document and its snarl
// records. Links, paths or snarls that mention a missing segment are
// rejected with ErrUnknownNode.
func Build(doc *gfa.Document, snarls []gfa.SnarlRecord) (*Graph, error) {
	g := &Graph{}

	// Step 1: Sort segments by id; the position becomes the dense index.
	segs := make([]gfa.Segment, len(doc.Segments))
	copy(segs, doc.Segments)
	sort.Slice(segs, func(i, j int) bool { return segs[i].ID < segs[j].ID })

	g.NumNodes = uint32(len(segs))
	g.NodeID = make([]int64, len(segs))
	g.Length = make([]uint32, len(segs))
	withSeq := len(segs) > 0
	for i, s := range segs {
		if i > 0 && segs[i-1].ID == s.ID {
			return nil, fmt.Errorf("duplicate segment %d", s.ID)
		}
		g.NodeID[i] = s.ID
		g.Length[i] = uint32(s.Length)
		if s.Sequence == "" {
			withSeq = false
		}
	}
	if withSeq {
		g.SeqStart = make([]uint64, len(segs)+1)
		for i, s := range segs {
			g.Seq = append(g.Seq, s.Sequence...)
			g.SeqStart[i+1] = uint64(len(g.Seq))
		}
	}

	handle := func(st gfa.Step) (Handle, error) {
		return g.HandleOf(st.ID, st.Reverse)
	}

	// Step 2: Each link yields two directed handle edges.
	type compactEdge struct{ from, to Handle }
	compact := make([]compactEdge, 0, 2*len(doc.Links))
	for _, l := range doc.Links {
		a, err := handle(gfa.Step{ID: l.From, Reverse: l.FromReverse})
		if err != nil {
			return nil, fmt.Errorf("link: %w", err)
		}
		b, err := handle(gfa.Step{ID: l.To, Reverse: l.ToReverse})
		if err != nil {
			return nil, fmt.Errorf("link: %w", err)
		}
		compact = append(compact, compactEdge{a, b}, compactEdge{b.Flip(), a.Flip()})
	}

	// Step 3: Sort and drop duplicates (reversing self-loops and repeated
	// L lines produce the same directed edge twice).
	sort.Slice(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		return compact[i].to < compact[j].to
	})
	uniq := compact[:0]
	for i, e := range compact {
		if i > 0 && e == compact[i-1] {
			continue
		}
		uniq = append(uniq, e)
	}

	// Step 4: Build CSR arrays over 2*NumNodes handles.
	numHandles := 2 * g.NumNodes
	g.NumEdges = uint32(len(uniq))
	g.FirstOut = make([]uint32, numHandles+1)
	g.Head = make([]Handle, len(uniq))
	for i, e := range uniq {
		g.Head[i] = e.to
		g.FirstOut[e.from+1]++
	}
	for i := uint32(1); i <= numHandles; i++ {
		g.FirstOut[i] += g.FirstOut[i-1]
	}

	// Step 5: Paths.
	g.PathFirst = make([]uint32, 1, len(doc.Paths)+1)
	for _, p := range doc.Paths {
		for _, st := range p.Steps {
			h, err := handle(st)
			if err != nil {
				return nil, fmt.Errorf("path %s: %w", p.Name, err)
			}
			g.PathSteps = append(g.PathSteps, h)
		}
		g.PathNames = append(g.PathNames, p.Name)
		g.PathFirst = append(g.PathFirst, uint32(len(g.PathSteps)))
	}

	// Step 6: Snarls, with parents resolved by boundary key.
	byKey := make(map[gfa.SnarlKey]int32, len(snarls))
	for i, rec := range snarls {
		byKey[rec.Key] = int32(i)
	}
	g.Snarls = make([]Snarl, len(snarls))
	for i, rec := range snarls {
		start, err := handle(rec.Key.Start)
		if err != nil {
			return nil, fmt.Errorf("snarl %d: %w", i, err)
		}
		end, err := handle(rec.Key.End)
		if err != nil {
			return nil, fmt.Errorf("snarl %d: %w", i, err)
		}
		parent := int32(-1)
		if rec.Parent != nil {
			p, ok := byKey[*rec.Parent]
			if !ok {
				return nil, fmt.Errorf("snarl %d: parent %d..%d not listed", i, rec.Parent.Start.ID, rec.Parent.End.ID)
			}
			parent = p
		}
		g.Snarls[i] = Snarl{Start: start, End: end, Parent: parent}
	}

	g.finish()
	return g, nil
}
