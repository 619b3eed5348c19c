package graph

// TraverseDecomposition visits every snarl in input order, parents before
// their children when the input lists them that way. It stops when fn
// returns false.
func (g *Graph) TraverseDecomposition(fn func(idx int, s *Snarl) bool) {
	for i := range g.Snarls {
		if !fn(i, &g.Snarls[i]) {
			return
		}
	}
}

// Children returns the indices of the snarls nested directly in snarl idx.
func (g *Graph) Children(idx int) []int {
	return g.children[idx]
}

// IsLeaf reports whether snarl idx has no child snarl.
func (g *Graph) IsLeaf(idx int) bool {
	return len(g.Children(idx)) == 0
}

func (g *Graph) indexChildren() {
	g.children = make([][]int, len(g.Snarls))
	for i, s := range g.Snarls {
		if s.Parent >= 0 {
			g.children[s.Parent] = append(g.children[s.Parent], i)
		}
	}
}

// InteriorNodes returns the ids of the nodes strictly between the snarl's
// boundaries, found by walking right from Start without crossing either
// boundary. ok is false when more than limit nodes are reachable, which
// happens for very large snarls or when the boundaries do not close a
// bubble.
func (g *Graph) InteriorNodes(idx int, limit int) (ids []int64, ok bool) {
	s := g.Snarls[idx]
	startIdx, endIdx := s.Start.Index(), s.End.Index()

	seen := map[uint32]bool{startIdx: true, endIdx: true}
	queue := []Handle{s.Start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		overflow := false
		g.FollowEdges(h, false, func(next Handle) bool {
			n := next.Index()
			if seen[n] {
				return true
			}
			seen[n] = true
			ids = append(ids, g.NodeID[n])
			if len(ids) > limit {
				overflow = true
				return false
			}
			queue = append(queue, next)
			return true
		})
		if overflow {
			return nil, false
		}
	}
	return ids, true
}
