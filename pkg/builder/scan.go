package builder

import "snarl_anchors/pkg/anchor"

// ScanState is the state of a path scan.
type ScanState int

const (
	// OutsideSnarl: no anchor is being collected.
	OutsideSnarl ScanState = iota
	// InsideSnarl: a start boundary was seen and nodes are collected until
	// the matching end boundary.
	InsideSnarl
)

// Boundary describes a snarl as seen from one of its boundary nodes.
type Boundary struct {
	End      int64
	Snarl    int
	Interior map[int64]struct{}
}

// Candidate is a snarl traversal found on a path.
type Candidate struct {
	Snarl int
	Nodes []anchor.OrientedNode
}

// Scanner folds path steps into snarl traversals.
type Scanner struct {
	bounds map[int64]*Boundary
	state  ScanState
	cur    *Boundary
	nodes  []anchor.OrientedNode
	out    []Candidate
}

// NewScanner returns a scanner that starts a traversal at every node id
// keyed in bounds.
func NewScanner(bounds map[int64]*Boundary) *Scanner {
	return &Scanner{bounds: bounds}
}

// State returns the current state.
func (s *Scanner) State() ScanState { return s.state }

// Step consumes one path step. A traversal is completed at the end
// boundary; a node that is neither interior nor the end abandons the
// traversal and is then considered as a new start.
func (s *Scanner) Step(n anchor.OrientedNode) {
	if s.state == InsideSnarl {
		if _, ok := s.cur.Interior[n.ID]; ok && n.ID != s.cur.End {
			s.nodes = append(s.nodes, n)
			return
		}
		if n.ID == s.cur.End {
			s.nodes = append(s.nodes, n)
			s.out = append(s.out, Candidate{Snarl: s.cur.Snarl, Nodes: s.nodes})
		}
		s.state, s.cur, s.nodes = OutsideSnarl, nil, nil
	}
	if b, ok := s.bounds[n.ID]; ok {
		s.state, s.cur = InsideSnarl, b
		s.nodes = []anchor.OrientedNode{n}
	}
}

// Candidates returns the traversals completed so far.
func (s *Scanner) Candidates() []Candidate { return s.out }

// ScanPath runs a fresh scanner over steps.
func ScanPath(steps []anchor.OrientedNode, bounds map[int64]*Boundary) []Candidate {
	s := NewScanner(bounds)
	for _, n := range steps {
		s.Step(n)
	}
	return s.Candidates()
}
