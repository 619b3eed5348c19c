package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// ComponentStats summarizes the weakly connected components of a graph.
type ComponentStats struct {
	Count       int
	LargestSize uint32 // nodes
	LargestBp   uint64
}

// Components groups nodes that are joined by any edge, ignoring
// orientation.
func Components(g *Graph) ComponentStats {
	if g.NumNodes == 0 {
		return ComponentStats{}
	}

	uf := NewUnionFind(g.NumNodes)
	for h := Handle(0); uint32(h) < 2*g.NumNodes; h++ {
		start, end := g.EdgesFrom(h)
		for e := start; e < end; e++ {
			uf.Union(h.Index(), g.Head[e].Index())
		}
	}

	var st ComponentStats
	bp := make(map[uint32]uint64)
	for i := uint32(0); i < g.NumNodes; i++ {
		root := uf.Find(i)
		if root == i {
			st.Count++
		}
		bp[root] += uint64(g.Length[i])
	}
	for root, total := range bp {
		if size := uf.size[root]; size > st.LargestSize || (size == st.LargestSize && total > st.LargestBp) {
			st.LargestSize = size
			st.LargestBp = total
		}
	}
	return st
}
