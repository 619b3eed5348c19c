// Package anchor defines anchors, the short unique paths through leaf
// snarls that reads are assigned to, and the sentinel-keyed dictionary
// holding them.
package anchor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// OrientedNode is one step of an anchor path. Two oriented nodes are
// equal when their ids are; the orientation only matters when walking.
type OrientedNode struct {
	ID      int64
	Length  int
	Forward bool
}

// Equal compares node ids only.
func (n OrientedNode) Equal(o OrientedNode) bool { return n.ID == o.ID }

// Flip returns the node read in the other direction.
func (n OrientedNode) Flip() OrientedNode {
	n.Forward = !n.Forward
	return n
}

// String renders the node as ">12" or "<12".
func (n OrientedNode) String() string {
	if n.Forward {
		return ">" + strconv.FormatInt(n.ID, 10)
	}
	return "<" + strconv.FormatInt(n.ID, 10)
}

// ReadMatch records one read assigned to an anchor. Start and End are
// read coordinates of the anchor span; End > Start.
type ReadMatch struct {
	ReadID         string
	RelativeStrand bool // same strand as the first read matched to the anchor
	Start          int
	End            int
	MatchSlack     int
	CsLeft         int // exact-match bases available left of Start
	CsRight        int // exact-match bases available right of End
	ReadLength     int
}

// Mirror returns the match in the coordinates of the reverse complemented
// read. The slack sides swap with it.
func (m ReadMatch) Mirror() ReadMatch {
	m.Start, m.End = m.ReadLength-m.End, m.ReadLength-m.Start
	m.CsLeft, m.CsRight = m.CsRight, m.CsLeft
	return m
}

// Anchor is a path through one snarl.
type Anchor struct {
	Nodes           []OrientedNode
	SnarlID         string
	BpLength        int
	BpOccupiedStart int
	BpOccupiedEnd   int
	GenomicPosition int
	ReferencePaths  []string // sorted, unique
	Reads           []ReadMatch

	// StrandRef is the orientation, relative to Nodes, of the first read
	// matched to the anchor. Reads whose orientation agrees get
	// RelativeStrand true. It is meaningless while Reads is empty.
	StrandRef bool

	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an anchor over nodes with its lengths computed.
func New(nodes []OrientedNode, snarlID string) *Anchor {
	a := &Anchor{Nodes: nodes, SnarlID: snarlID}
	a.Recompute()
	return a
}

// Recompute derives the boundary occupancy and the anchor length from the
// node list. Each boundary contributes half its length, rounded down, and
// interior nodes contribute fully.
func (a *Anchor) Recompute() {
	n := len(a.Nodes)
	if n == 0 {
		a.BpOccupiedStart, a.BpOccupiedEnd, a.BpLength = 0, 0, 0
		return
	}
	a.BpOccupiedStart = a.Nodes[0].Length / 2
	a.BpOccupiedEnd = a.Nodes[n-1].Length / 2
	if n == 1 {
		a.BpOccupiedEnd = 0
	}
	a.BpLength = a.BpOccupiedStart + a.BpOccupiedEnd
	for _, node := range a.Nodes[1 : n-1] {
		a.BpLength += node.Length
	}
}

// NumSequences returns the number of reads matched to the anchor.
func (a *Anchor) NumSequences() int { return len(a.Reads) }

// SentinelIndex returns the position of the sentinel in Nodes: the middle
// node for odd lengths, and for even lengths the one of the two middle
// nodes with the lower id. The choice does not depend on direction.
func (a *Anchor) SentinelIndex() int {
	n := len(a.Nodes)
	if n%2 == 1 {
		return n / 2
	}
	i := n/2 - 1
	if a.Nodes[i+1].ID < a.Nodes[i].ID {
		i++
	}
	return i
}

// Sentinel returns the id of the sentinel node.
func (a *Anchor) Sentinel() int64 { return a.Nodes[a.SentinelIndex()].ID }

// String renders the path as ">12<7>3".
func (a *Anchor) String() string { return PathString(a.Nodes) }

// BandageString renders the node ids comma separated for pasting into
// Bandage.
func (a *Anchor) BandageString() string {
	ids := make([]string, len(a.Nodes))
	for i, n := range a.Nodes {
		ids[i] = strconv.FormatInt(n.ID, 10)
	}
	return strings.Join(ids, ",")
}

// AddReferencePath records that path name traverses the anchor.
func (a *Anchor) AddReferencePath(name string) {
	i, found := slices.BinarySearch(a.ReferencePaths, name)
	if !found {
		a.ReferencePaths = slices.Insert(a.ReferencePaths, i, name)
	}
}

// HasRead reports whether readID matched the anchor.
func (a *Anchor) HasRead(readID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexReads()
	_, ok := a.seen[readID]
	return ok
}

// Record appends the match of a read whose orientation relative to Nodes
// is concordant. The first recorded read fixes StrandRef; later reads on
// the other strand are mirrored into that frame. Record returns false
// when the read is already matched to the anchor.
func (a *Anchor) Record(m ReadMatch, concordant bool) (ReadMatch, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexReads()
	if _, dup := a.seen[m.ReadID]; dup {
		return ReadMatch{}, false
	}
	if len(a.Reads) == 0 {
		a.StrandRef = concordant
	}
	m.RelativeStrand = concordant == a.StrandRef
	if !m.RelativeStrand {
		m = m.Mirror()
	}
	a.seen[m.ReadID] = struct{}{}
	a.Reads = append(a.Reads, m)
	return m, true
}

// SetReads replaces the matched reads.
func (a *Anchor) SetReads(reads []ReadMatch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Reads = reads
	a.seen = nil
}

func (a *Anchor) indexReads() {
	if a.seen != nil {
		return
	}
	a.seen = make(map[string]struct{}, len(a.Reads))
	for _, r := range a.Reads {
		a.seen[r.ReadID] = struct{}{}
	}
}

// Clone returns a deep copy of the anchor.
func (a *Anchor) Clone() *Anchor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &Anchor{
		Nodes:           slices.Clone(a.Nodes),
		SnarlID:         a.SnarlID,
		BpLength:        a.BpLength,
		BpOccupiedStart: a.BpOccupiedStart,
		BpOccupiedEnd:   a.BpOccupiedEnd,
		GenomicPosition: a.GenomicPosition,
		ReferencePaths:  slices.Clone(a.ReferencePaths),
		Reads:           slices.Clone(a.Reads),
		StrandRef:       a.StrandRef,
	}
}

// Reverse returns nodes read backwards with every orientation flipped.
func Reverse(nodes []OrientedNode) []OrientedNode {
	out := make([]OrientedNode, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n.Flip()
	}
	return out
}

// EqualPaths reports whether a and b are the same path, possibly read in
// opposite directions.
func EqualPaths(a, b []OrientedNode) bool {
	if len(a) != len(b) {
		return false
	}
	same := true
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Forward != b[i].Forward {
			same = false
			break
		}
	}
	if same {
		return true
	}
	n := len(a)
	for i := range a {
		r := b[n-1-i]
		if a[i].ID != r.ID || a[i].Forward == r.Forward {
			return false
		}
	}
	return true
}

// Equal reports whether two anchors describe the same path.
func Equal(a, b *Anchor) bool { return EqualPaths(a.Nodes, b.Nodes) }

// PathString renders nodes as ">12<7>3".
func PathString(nodes []OrientedNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.String())
	}
	return sb.String()
}

// ParsePath parses ">12<7>3". Node lengths are left zero.
func ParsePath(s string) ([]OrientedNode, error) {
	var nodes []OrientedNode
	for i := 0; i < len(s); {
		if s[i] != '>' && s[i] != '<' {
			return nil, fmt.Errorf("path %q: expected '>' or '<' at %d", s, i)
		}
		j := i + 1
		for j < len(s) && s[j] != '>' && s[j] != '<' {
			j++
		}
		id, err := strconv.ParseInt(s[i+1:j], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", s, err)
		}
		nodes = append(nodes, OrientedNode{ID: id, Forward: s[i] == '>'})
		i = j
	}
	return nodes, nil
}
