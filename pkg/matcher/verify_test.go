package matcher

import (
	"testing"

	"github.com/biogo/hts/sam"

	"snarl_anchors/pkg/anchor"
)

func node(id int64, length int, forward bool) anchor.OrientedNode {
	return anchor.OrientedNode{ID: id, Length: length, Forward: forward}
}

var (
	nodeA = node(1, 81, true)
	nodeB = node(2, 1, true)
	nodeD = node(4, 41, true)
	nodeE = node(5, 56, true)
)

func TestVerifyPathConcordance(t *testing.T) {
	const walked = 200
	tests := []struct {
		name      string
		anchor    []anchor.OrientedNode
		nodes     []int64
		orient    []bool
		wantOK    bool
		wantStart int
		wantEnd   int
	}{
		{
			name:   "concordant match",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeD},
			nodes:  []int64{1, 2, 4}, orient: []bool{true, true, true},
			wantOK: true, wantStart: 160, wantEnd: 221,
		},
		{
			name:   "concordant out of range",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeD},
			nodes:  []int64{1, 2}, orient: []bool{true, true},
		},
		{
			name:   "non-concordant out of range",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeD},
			nodes:  []int64{4, 2}, orient: []bool{false, false},
		},
		{
			name:   "concordant different node",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeE},
			nodes:  []int64{1, 2, 4}, orient: []bool{true, true, true},
		},
		{
			name:   "non-concordant match",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeE},
			nodes:  []int64{5, 2, 1}, orient: []bool{false, false, false},
			wantOK: true, wantStart: 172, wantEnd: 241,
		},
		{
			name:   "non-concordant different node",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeE},
			nodes:  []int64{5, 2, 3}, orient: []bool{false, false, false},
		},
		{
			name:   "orientation flip inside the anchor",
			anchor: []anchor.OrientedNode{nodeA, nodeB, nodeD},
			nodes:  []int64{1, 2, 4}, orient: []bool{true, true, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := anchor.New(tt.anchor, "s")
			w, ok := VerifyPathConcordance(tt.nodes, tt.orient, 1, a)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if start, end := walked-w.Before, walked+w.After; start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("walk = [%d,%d), want [%d,%d)", start, end, tt.wantStart, tt.wantEnd)
			}
			if w.Before+w.After != a.BpLength {
				t.Errorf("walk length %d, want BpLength %d", w.Before+w.After, a.BpLength)
			}
		})
	}
}

func TestVerifyPathConcordanceSentinelAtBoundary(t *testing.T) {
	// Two-node anchors have a boundary node as sentinel.
	a := anchor.New([]anchor.OrientedNode{node(7, 30, true), node(3, 21, true)}, "s")
	if a.Sentinel() != 3 {
		t.Fatalf("Sentinel() = %d, want 3", a.Sentinel())
	}
	w, ok := VerifyPathConcordance([]int64{7, 3}, []bool{true, true}, 1, a)
	if !ok || w.Before != 15 || w.After != 10 {
		t.Errorf("walk = %+v ok=%v, want Before 15 After 10", w, ok)
	}

	b := anchor.New([]anchor.OrientedNode{node(3, 30, true), node(7, 21, true)}, "s")
	w, ok = VerifyPathConcordance([]int64{3, 7}, []bool{true, true}, 0, b)
	if !ok || w.Before != -15 || w.After != 40 {
		t.Errorf("walk = %+v ok=%v, want Before -15 After 40", w, ok)
	}
}

func ops(args ...any) []sam.CigarOp {
	types := map[string]sam.CigarOpType{
		":": sam.CigarEqual,
		"*": sam.CigarMismatch,
		"+": sam.CigarInsertion,
		"-": sam.CigarDeletion,
	}
	var out []sam.CigarOp
	for i := 0; i+1 < len(args); i += 2 {
		out = append(out, sam.NewCigarOp(types[args[i].(string)], args[i+1].(int)))
	}
	return out
}

func TestVerifySequenceAgreement(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		ops        []sam.CigarOp
		pathStart  int
		pathEnd    int
		wantOK     bool
		want       Agreement
	}{
		{
			name: "single match", start: 105, end: 116,
			ops: ops(":", 121), pathEnd: 121,
			wantOK: true, want: Agreement{ReadStart: 105, ReadEnd: 116, CsLeft: 105, CsRight: 5},
		},
		{
			name: "insertions and deletions before the anchor", start: 110, end: 120,
			ops: ops("+", 100, ":", 100, "+", 10, "-", 10, ":", 100), pathEnd: 300,
			wantOK: true, want: Agreement{ReadStart: 210, ReadEnd: 220, CsLeft: 0, CsRight: 90},
		},
		{
			name: "insertion at the anchor start", start: 105, end: 116,
			ops: ops(":", 105, "+", 3, ":", 20), pathEnd: 125,
			wantOK: true, want: Agreement{ReadStart: 108, ReadEnd: 119, CsLeft: 0, CsRight: 9},
		},
		{
			name: "slack spans contiguous matches", start: 105, end: 116,
			ops: ops(":", 50, ":", 55, ":", 11, ":", 4, "*", 1), pathEnd: 121,
			wantOK: true, want: Agreement{ReadStart: 105, ReadEnd: 116, CsLeft: 105, CsRight: 4},
		},
		{
			name: "insertion inside the anchor", start: 105, end: 116,
			ops: ops(":", 108, "+", 2, ":", 20), pathEnd: 128,
		},
		{
			name: "substitution inside the anchor", start: 105, end: 116,
			ops: ops(":", 107, "*", 1, ":", 13), pathEnd: 121,
		},
		{
			name: "deletion entering the anchor", start: 105, end: 116,
			ops: ops(":", 100, "-", 10, ":", 50), pathEnd: 160,
		},
		{
			name: "alignment ends inside the anchor", start: 105, end: 116,
			ops: ops(":", 110), pathEnd: 121,
		},
		{
			name: "anchor past the alignment end", start: 105, end: 130,
			ops: ops(":", 121), pathEnd: 121,
		},
		{
			name: "anchor before the alignment start", start: 5, end: 16,
			ops: ops(":", 121), pathStart: 10, pathEnd: 131,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := VerifySequenceAgreement(tt.start, tt.end, tt.ops, tt.pathStart, tt.pathEnd)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if ok && got.ReadEnd-got.ReadStart != tt.end-tt.start {
				t.Errorf("read span %d, want anchor span %d", got.ReadEnd-got.ReadStart, tt.end-tt.start)
			}
		})
	}
}
