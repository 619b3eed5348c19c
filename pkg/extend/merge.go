package extend

import (
	"slices"

	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
)

// merge joins short snarls with the snarls sharing one of their boundary
// nodes. Snarls wait in a worklist; a merge retires both inputs and queues
// the composite together with its neighbours, which may now merge too.
func (e *Extender) merge(order []string) {
	e.byBoundary = make(map[int64][]string)
	for _, id := range order {
		e.index(id)
	}

	queue := slices.Clone(order)
	retired := make(map[string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if retired[id] || shortest(e.groups[id]) >= e.cfg.MinAnchorLength {
			continue
		}
		for _, nb := range e.neighbours(id) {
			merged, ok := e.mergeSnarls(id, nb)
			if !ok {
				e.stats.MergesAbandoned++
				continue
			}
			composite := id + "-" + nb
			e.unindex(id)
			e.unindex(nb)
			delete(e.groups, id)
			delete(e.groups, nb)
			retired[id], retired[nb] = true, true

			e.groups[composite] = merged
			e.index(composite)
			e.stats.Merges++
			log.Debug.Printf("extend: merged snarls %s and %s into %d anchors", id, nb, len(merged))
			queue = append(queue, composite)
			queue = append(queue, e.neighbours(composite)...)
			break
		}
	}
}

func boundaries(anchors []*anchor.Anchor) [2]int64 {
	nodes := anchors[0].Nodes
	return [2]int64{nodes[0].ID, nodes[len(nodes)-1].ID}
}

func (e *Extender) index(id string) {
	for _, b := range boundaries(e.groups[id]) {
		e.byBoundary[b] = append(e.byBoundary[b], id)
	}
}

func (e *Extender) unindex(id string) {
	for _, b := range boundaries(e.groups[id]) {
		e.byBoundary[b] = slices.DeleteFunc(e.byBoundary[b], func(s string) bool { return s == id })
		if len(e.byBoundary[b]) == 0 {
			delete(e.byBoundary, b)
		}
	}
}

// neighbours returns the active snarls sharing a boundary node with id.
func (e *Extender) neighbours(id string) []string {
	var out []string
	for _, b := range boundaries(e.groups[id]) {
		for _, other := range e.byBoundary[b] {
			if other != id && !slices.Contains(out, other) {
				out = append(out, other)
			}
		}
	}
	slices.SortFunc(out, compareSnarlIDs)
	return out
}

// mergeSnarls combines every anchor of snarl a with every anchor of snarl
// b. It fails when fewer than min(2, max(|A|, |B|)) combinations survive.
func (e *Extender) mergeSnarls(a, b string) ([]*anchor.Anchor, bool) {
	as, bs := e.groups[a], e.groups[b]
	ba, bb := boundaries(as), boundaries(bs)
	var shared int64
	switch {
	case ba[0] == bb[0] || ba[0] == bb[1]:
		shared = ba[0]
	case ba[1] == bb[0] || ba[1] == bb[1]:
		shared = ba[1]
	default:
		return nil, false
	}

	id := a + "-" + b
	var out []*anchor.Anchor
	kept := make(map[*anchor.Anchor]map[string]bool)
	for _, x := range as {
		for _, y := range bs {
			m, ok := e.combine(x, y, shared, id)
			if !ok {
				continue
			}
			out = append(out, m)
			for _, r := range m.Reads {
				for _, src := range []*anchor.Anchor{x, y} {
					if kept[src] == nil {
						kept[src] = make(map[string]bool)
					}
					kept[src][r.ReadID] = true
				}
			}
		}
	}
	if len(out) < min(2, max(len(as), len(bs))) {
		log.Debug.Printf("extend: merge of %s and %s keeps %d of %dx%d anchors, abandoned", a, b, len(out), len(as), len(bs))
		return nil, false
	}

	for _, src := range append(slices.Clone(as), bs...) {
		for _, r := range src.Reads {
			if !kept[src][r.ReadID] {
				e.audit.drop(src, r.ReadID, "merge")
				e.stats.DroppedReads++
			}
		}
	}
	return out, true
}

// combine joins x and y at their shared boundary node. The reads kept are
// those matched to both anchors on adjacent read spans, with enough slack
// to cover the bases of the shared node that neither anchor occupies.
func (e *Extender) combine(x, y *anchor.Anchor, shared int64, id string) (*anchor.Anchor, bool) {
	left, xFlip, ok := orientTo(x, shared, false)
	if !ok {
		return nil, false
	}
	right, yFlip, ok := orientTo(y, shared, true)
	if !ok {
		return nil, false
	}
	joint := left[len(left)-1]
	if joint.Forward != right[0].Forward {
		return nil, false
	}
	for _, n := range right[1:] {
		if slices.ContainsFunc(left, n.Equal) {
			return nil, false
		}
	}

	var paths []string
	for _, p := range x.ReferencePaths {
		if _, found := slices.BinarySearch(y.ReferencePaths, p); found {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, false
	}

	occX, occY := x.BpOccupiedEnd, y.BpOccupiedStart
	if xFlip {
		occX = x.BpOccupiedStart
	}
	if yFlip {
		occY = y.BpOccupiedEnd
	}
	gap := joint.Length - occX - occY
	if gap < 0 {
		return nil, false
	}

	byID := make(map[string]anchor.ReadMatch, len(y.Reads))
	for _, r := range y.Reads {
		byID[r.ReadID] = r
	}
	type joined struct {
		m       anchor.ReadMatch
		forward bool
	}
	var common []joined
	for _, rx := range x.Reads {
		ry, ok := byID[rx.ReadID]
		if !ok {
			continue
		}
		fx := (x.StrandRef == rx.RelativeStrand) != xFlip
		fy := (y.StrandRef == ry.RelativeStrand) != yFlip
		if fx != fy {
			continue
		}
		nx, ny := native(rx), native(ry)
		first, second := nx, ny
		if !fx {
			first, second = ny, nx
		}
		if first.End+gap != second.Start || first.CsRight < gap || second.CsLeft < gap {
			continue
		}
		m := first
		m.End = second.End
		m.CsRight = second.CsRight
		m.MatchSlack = m.CsLeft + m.CsRight
		common = append(common, joined{m: m, forward: fx})
	}
	if len(common) <= e.cfg.MinCommonReads {
		return nil, false
	}

	nodes := append(slices.Clone(left), right[1:]...)
	m := anchor.New(nodes, id)
	m.ReferencePaths = paths
	m.GenomicPosition = position(x.GenomicPosition, y.GenomicPosition)
	for _, c := range common {
		m.Record(c.m, c.forward)
	}
	return m, true
}

// orientTo returns the nodes of a arranged so that the shared node comes
// first (atStart) or last, and whether they had to be reversed.
func orientTo(a *anchor.Anchor, shared int64, atStart bool) ([]anchor.OrientedNode, bool, bool) {
	n := len(a.Nodes)
	first, last := a.Nodes[0].ID == shared, a.Nodes[n-1].ID == shared
	switch {
	case atStart && first, !atStart && last:
		return a.Nodes, false, true
	case atStart && last, !atStart && first:
		return anchor.Reverse(a.Nodes), true, true
	}
	return nil, false, false
}

// native returns a read span in the coordinates of the read as sequenced.
func native(r anchor.ReadMatch) anchor.ReadMatch {
	if r.RelativeStrand {
		return r
	}
	return r.Mirror()
}

func position(a, b int) int {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	}
	return min(a, b)
}
