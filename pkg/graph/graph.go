// Package graph is the variation graph store: a bidirected sequence graph
// in CSR form over oriented node handles, with embedded reference paths and
// the precomputed snarl tree.
package graph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownNode is returned when a node id is not present in the graph.
// Seeing it while matching alignments means the alignments were computed
// against a different graph.
var ErrUnknownNode = errors.New("unknown node id")

// Handle is an oriented node: dense node index in the high bits, the
// reverse flag in the low bit.
type Handle uint32

// NewHandle packs a dense node index and an orientation.
func NewHandle(index uint32, reverse bool) Handle {
	h := Handle(index << 1)
	if reverse {
		h |= 1
	}
	return h
}

// Index returns the dense node index.
func (h Handle) Index() uint32 { return uint32(h >> 1) }

// IsReverse reports whether the handle reads the node backwards.
func (h Handle) IsReverse() bool { return h&1 == 1 }

// Flip returns the same node in the opposite orientation.
func (h Handle) Flip() Handle { return h ^ 1 }

// Graph is a bidirected graph. Every GFA link a->b is stored as two
// directed handle edges: a->b and flip(b)->flip(a).
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	NodeID   []int64  // len: NumNodes; sorted ascending, external ids
	Length   []uint32 // len: NumNodes; node length in bp
	SeqStart []uint64 // len: NumNodes + 1 when sequences are loaded, else empty
	Seq      []byte
	FirstOut []uint32 // len: 2*NumNodes + 1; indexed by Handle
	Head     []Handle // len: NumEdges

	// Paths in CSR form: PathFirst[p]..PathFirst[p+1] index PathSteps.
	PathNames []string
	PathFirst []uint32
	PathSteps []Handle

	Snarls []Snarl

	// Step-on-node index, rebuilt after construction and loading.
	nodeFirstStep []uint32
	stepRefs      []uint32
	children      [][]int
}

// Snarl is one bubble of the snarl decomposition. Start reads into the
// snarl, End reads out of it.
type Snarl struct {
	Start  Handle
	End    Handle
	Parent int32 // -1 for top-level snarls
}

// StepRef locates one visit of a path.
type StepRef struct {
	Path int
	Rank int
}

// Index returns the dense index for an external node id.
func (g *Graph) Index(id int64) (uint32, bool) {
	i, ok := slices.BinarySearch(g.NodeID, id)
	return uint32(i), ok
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.Index(id)
	return ok
}

// HandleOf returns the handle for node id in the requested orientation.
func (g *Graph) HandleOf(id int64, reverse bool) (Handle, error) {
	i, ok := g.Index(id)
	if !ok {
		return 0, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return NewHandle(i, reverse), nil
}

// NodeLength returns the length of node id.
func (g *Graph) NodeLength(id int64) (int, error) {
	i, ok := g.Index(id)
	if !ok {
		return 0, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return int(g.Length[i]), nil
}

// ID returns the external id of the handle's node.
func (g *Graph) ID(h Handle) int64 { return g.NodeID[h.Index()] }

// Len returns the node length of h in bp.
func (g *Graph) Len(h Handle) int { return int(g.Length[h.Index()]) }

// Sequence returns the sequence of h, reverse complemented for reverse
// handles. It is empty when the graph was loaded without sequences.
func (g *Graph) Sequence(h Handle) string {
	if len(g.SeqStart) == 0 {
		return ""
	}
	i := h.Index()
	s := g.Seq[g.SeqStart[i]:g.SeqStart[i+1]]
	if h.IsReverse() {
		return reverseComplement(s)
	}
	return string(s)
}

// EdgesFrom returns the range of edge indices leaving h to the right.
func (g *Graph) EdgesFrom(h Handle) (start, end uint32) {
	return g.FirstOut[h], g.FirstOut[h+1]
}

// FollowEdges calls fn for every neighbour of h, to the right unless
// goLeft is set. Neighbours on the left are returned in the orientation
// that reads into h. It stops early and returns false when fn does.
func (g *Graph) FollowEdges(h Handle, goLeft bool, fn func(Handle) bool) bool {
	from := h
	if goLeft {
		from = h.Flip()
	}
	start, end := g.EdgesFrom(from)
	for e := start; e < end; e++ {
		next := g.Head[e]
		if goLeft {
			next = next.Flip()
		}
		if !fn(next) {
			return false
		}
	}
	return true
}

// Degree returns the number of edges on one side of h.
func (g *Graph) Degree(h Handle, goLeft bool) int {
	from := h
	if goLeft {
		from = h.Flip()
	}
	start, end := g.EdgesFrom(from)
	return int(end - start)
}

// NumPaths returns the number of embedded paths.
func (g *Graph) NumPaths() int { return len(g.PathNames) }

// PathByName returns the index of the named path.
func (g *Graph) PathByName(name string) (int, bool) {
	for i, n := range g.PathNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Steps returns the oriented steps of path p.
func (g *Graph) Steps(p int) []Handle {
	return g.PathSteps[g.PathFirst[p]:g.PathFirst[p+1]]
}

// ForEachStepOnNode calls fn for every path visit of node id.
func (g *Graph) ForEachStepOnNode(id int64, fn func(StepRef) bool) bool {
	i, ok := g.Index(id)
	if !ok {
		return true
	}
	for _, s := range g.stepRefs[g.nodeFirstStep[i]:g.nodeFirstStep[i+1]] {
		p, _ := slices.BinarySearch(g.PathFirst, s+1)
		p--
		if !fn(StepRef{Path: p, Rank: int(s - g.PathFirst[p])}) {
			return false
		}
	}
	return true
}

// finish rebuilds the derived indexes. It runs after Build and ReadBinary.
func (g *Graph) finish() {
	g.indexSteps()
	g.indexChildren()
}

// indexSteps builds the node -> path step index with a counting pass,
// the same way the edge CSR is built.
func (g *Graph) indexSteps() {
	first := make([]uint32, g.NumNodes+1)
	for _, h := range g.PathSteps {
		first[h.Index()+1]++
	}
	for i := uint32(1); i <= g.NumNodes; i++ {
		first[i] += first[i-1]
	}
	refs := make([]uint32, len(g.PathSteps))
	pos := make([]uint32, g.NumNodes)
	copy(pos, first[:g.NumNodes])
	for s, h := range g.PathSteps {
		n := h.Index()
		refs[pos[n]] = uint32(s)
		pos[n]++
	}
	g.nodeFirstStep = first
	g.stepRefs = refs
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

func reverseComplement(s []byte) string {
	out := make([]byte, len(s))
	for i, c := range s {
		rc := complement[c]
		if rc == 0 {
			rc = 'N'
		}
		out[len(s)-1-i] = rc
	}
	return string(out)
}
