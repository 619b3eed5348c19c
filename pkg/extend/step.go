package extend

import (
	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/graph"
)

// extension is one anchor's share of an extension step.
type extension struct {
	a     *anchor.Anchor
	front bool
	next  anchor.OrientedNode
	added int
	keep  []anchor.ReadMatch
	drop  []anchor.ReadMatch
}

// extendSnarl runs the three rounds on one snarl. Each round keeps taking
// single-node steps until the snarl is long enough or no step is admitted.
func (e *Extender) extendSnarl(id string) error {
	anchors := e.groups[id]
	het := len(anchors) > 1
	for _, round := range rounds {
		for shortest(anchors) < e.cfg.MinAnchorLength {
			ok, err := e.step(anchors, het, round)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			e.stats.Steps++
			log.Debug.Printf("extend: snarl %s %s step, shortest anchor %d bp", id, round, shortest(anchors))
		}
	}
	if shortest(anchors) < e.cfg.MinAnchorLength {
		e.stats.Short++
	}
	return nil
}

// step extends every anchor of the snarl by one node on the first side,
// longer boundary node first, whose step the round admits.
func (e *Extender) step(anchors []*anchor.Anchor, het bool, round Round) (bool, error) {
	nodes := anchors[0].Nodes
	sides := []int64{nodes[0].ID, nodes[len(nodes)-1].ID}
	if nodes[len(nodes)-1].Length > nodes[0].Length {
		sides[0], sides[1] = sides[1], sides[0]
	}
	for _, boundary := range sides {
		plan, ok, err := e.plan(anchors, boundary)
		if err != nil {
			return false, err
		}
		if ok && e.admit(plan, het, round) {
			e.commit(plan)
			return true, nil
		}
	}
	return false, nil
}

// plan computes the extension of every anchor past its boundary node with
// the given id. It fails when any anchor cannot step: the boundary has
// more than one neighbour outward, or the neighbour is already on the
// anchor.
func (e *Extender) plan(anchors []*anchor.Anchor, boundary int64) ([]extension, bool, error) {
	plan := make([]extension, 0, len(anchors))
	for _, a := range anchors {
		n := len(a.Nodes)
		var x extension
		switch boundary {
		case a.Nodes[0].ID:
			x = extension{a: a, front: true}
		case a.Nodes[n-1].ID:
			x = extension{a: a}
		default:
			return nil, false, nil
		}
		next, ok, err := e.neighbour(a, x.front)
		if err != nil || !ok {
			return nil, false, err
		}
		if len(plan) > 0 && next.ID != plan[0].next.ID {
			return nil, false, nil
		}
		for _, node := range a.Nodes {
			if node.ID == next.ID {
				return nil, false, nil
			}
		}
		x.next = next

		b, occ := a.Nodes[n-1], a.BpOccupiedEnd
		if x.front {
			b, occ = a.Nodes[0], a.BpOccupiedStart
		}
		x.added = b.Length - occ + next.Length/2

		// Read coordinates grow along Nodes iff StrandRef.
		lower := x.front == a.StrandRef
		for _, r := range a.Reads {
			slack := r.CsRight
			if lower {
				slack = r.CsLeft
			}
			if slack >= x.added {
				x.keep = append(x.keep, shift(r, lower, x.added))
			} else {
				x.drop = append(x.drop, r)
			}
		}
		plan = append(plan, x)
	}
	return plan, true, nil
}

// neighbour returns the only node adjacent to the front or back boundary
// of a, oriented along the anchor.
func (e *Extender) neighbour(a *anchor.Anchor, front bool) (anchor.OrientedNode, bool, error) {
	b := a.Nodes[len(a.Nodes)-1]
	if front {
		b = a.Nodes[0]
	}
	h, err := e.g.HandleOf(b.ID, !b.Forward)
	if err != nil {
		return anchor.OrientedNode{}, false, err
	}
	if e.g.Degree(h, front) != 1 {
		return anchor.OrientedNode{}, false, nil
	}
	var next graph.Handle
	e.g.FollowEdges(h, front, func(n graph.Handle) bool {
		next = n
		return false
	})
	return anchor.OrientedNode{ID: e.g.ID(next), Length: e.g.Len(next), Forward: !next.IsReverse()}, true, nil
}

// admit reports whether the round allows the planned drops. A
// heterozygous snarl must keep reads on at least two anchors.
func (e *Extender) admit(plan []extension, het bool, round Round) bool {
	supported := 0
	for _, x := range plan {
		n, d := len(x.a.Reads), len(x.drop)
		if d > 0 {
			switch round {
			case RoundStrict:
				return false
			case RoundFraction:
				if d > int(e.cfg.DropFraction*float64(n)) || n-d < e.cfg.MinCoverage {
					return false
				}
			case RoundFloor:
				if n-d < e.cfg.MinCoverage {
					return false
				}
			}
		}
		if n-d > 0 {
			supported++
		}
	}
	return !het || supported >= 2
}

func (e *Extender) commit(plan []extension) {
	for _, x := range plan {
		a := x.a
		for _, r := range x.drop {
			e.audit.drop(a, r.ReadID, "extension")
			e.stats.DroppedReads++
		}
		if x.front {
			a.Nodes = append([]anchor.OrientedNode{x.next}, a.Nodes...)
		} else {
			a.Nodes = append(a.Nodes, x.next)
		}
		a.Recompute()
		a.SetReads(x.keep)
	}
}

// shift widens a read span by n bases on its lower or upper side, taking
// them from the slack on that side.
func shift(r anchor.ReadMatch, lower bool, n int) anchor.ReadMatch {
	if lower {
		r.Start -= n
		r.CsLeft -= n
	} else {
		r.End += n
		r.CsRight -= n
	}
	r.MatchSlack = r.CsLeft + r.CsRight
	return r
}
