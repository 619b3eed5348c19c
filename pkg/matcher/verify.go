package matcher

import (
	"github.com/biogo/hts/sam"

	"snarl_anchors/pkg/anchor"
)

// Walk is the placement of an anchor around the sentinel node of a read
// path.
type Walk struct {
	// Concordant is true when the read path runs in the direction of the
	// anchor's node list.
	Concordant bool
	// Before is the number of anchor bases preceding the start of the
	// sentinel node in path direction; After is the number of anchor bases
	// from the start of the sentinel node to the anchor end.
	Before int
	After  int
}

// VerifyPathConcordance checks that the read path around position pos,
// which holds the sentinel of a, spells the anchor node by node with
// matching orientations. The anchor is read backwards with flipped
// orientations when the read crosses the sentinel in the other direction.
func VerifyPathConcordance(nodes []int64, orientations []bool, pos int, a *anchor.Anchor) (Walk, bool) {
	sentinel := -1
	for i, n := range a.Nodes {
		if n.ID == nodes[pos] {
			sentinel = i
			break
		}
	}
	if sentinel < 0 {
		return Walk{}, false
	}

	concordant := a.Nodes[sentinel].Forward == orientations[pos]
	walk := a.Nodes
	cut := sentinel
	occFirst, occLast := a.BpOccupiedStart, a.BpOccupiedEnd
	if !concordant {
		walk = anchor.Reverse(a.Nodes)
		cut = len(a.Nodes) - 1 - sentinel
		occFirst, occLast = occLast, occFirst
	}

	start := pos - cut
	if start < 0 || start+len(walk) > len(nodes) {
		return Walk{}, false
	}
	for i, n := range walk {
		if nodes[start+i] != n.ID || orientations[start+i] != n.Forward {
			return Walk{}, false
		}
	}

	w := Walk{Concordant: concordant}
	for _, n := range walk[:cut] {
		w.Before += n.Length
	}
	w.Before -= walk[0].Length - occFirst
	for _, n := range walk[cut:] {
		w.After += n.Length
	}
	w.After -= walk[len(walk)-1].Length - occLast
	return w, true
}

// Agreement is a successful sequence check. ReadStart and ReadEnd are
// offsets from the first aligned read base, in path direction. CsLeft and
// CsRight count the exact-match bases adjacent to the anchor span.
type Agreement struct {
	ReadStart int
	ReadEnd   int
	CsLeft    int
	CsRight   int
}

func isMatch(op sam.CigarOp) bool { return op.Type() == sam.CigarEqual }

// VerifySequenceAgreement replays the alignment operations over the path
// interval [startInPath, endInPath) and checks that every operation
// touching the anchor span [anchorStart, anchorEnd) is an exact match.
func VerifySequenceAgreement(anchorStart, anchorEnd int, ops []sam.CigarOp, startInPath, endInPath int) (Agreement, bool) {
	if anchorEnd > endInPath || anchorStart < startInPath {
		return Agreement{}, false
	}

	seq, path := 0, startInPath
	inside := false
	enter, enterPath := 0, 0
	for i, op := range ops {
		prev := path
		c := op.Type().Consumes()
		seq += op.Len() * c.Query
		path += op.Len() * c.Reference

		switch {
		case !inside && path > anchorStart:
			if !isMatch(op) {
				return Agreement{}, false
			}
			enter, enterPath = i, prev
			if path >= anchorEnd {
				return agreement(ops, seq, path, anchorStart, anchorEnd, enter, enterPath, i), true
			}
			inside = true
		case inside && !isMatch(op):
			return Agreement{}, false
		case path >= anchorEnd:
			return agreement(ops, seq, path, anchorStart, anchorEnd, enter, enterPath, i), true
		case path > endInPath:
			return Agreement{}, false
		}
	}
	return Agreement{}, false
}

func agreement(ops []sam.CigarOp, seq, path, anchorStart, anchorEnd, enter, enterPath, exit int) Agreement {
	a := Agreement{
		ReadStart: seq - (path - anchorStart),
		ReadEnd:   seq - (path - anchorEnd),
		CsLeft:    anchorStart - enterPath,
		CsRight:   path - anchorEnd,
	}
	for i := enter - 1; i >= 0 && isMatch(ops[i]); i-- {
		a.CsLeft += ops[i].Len()
	}
	for i := exit + 1; i < len(ops) && isMatch(ops[i]); i++ {
		a.CsRight += ops[i].Len()
	}
	return a
}
