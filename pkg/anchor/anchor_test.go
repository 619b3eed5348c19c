package anchor

import (
	"testing"
)

func nodes(args ...any) []OrientedNode {
	// args: id, length, forward triples
	var out []OrientedNode
	for i := 0; i+2 < len(args); i += 3 {
		out = append(out, OrientedNode{
			ID:      int64(args[i].(int)),
			Length:  args[i+1].(int),
			Forward: args[i+2].(bool),
		})
	}
	return out
}

func TestBpLengthInvariant(t *testing.T) {
	tests := []struct {
		name      string
		nodes     []OrientedNode
		wantStart int
		wantEnd   int
		wantLen   int
	}{
		{"three nodes", nodes(1, 10, true, 2, 1, true, 3, 10, true), 5, 5, 11},
		{"odd boundaries", nodes(1, 81, true, 2, 1, true, 4, 41, true), 40, 20, 61},
		{"two nodes", nodes(1, 7, true, 2, 9, false), 3, 4, 7},
		{"long interior", nodes(1, 2, true, 2, 30, true, 3, 40, false, 4, 3, true), 1, 1, 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.nodes, "s1")
			if a.BpOccupiedStart != tt.wantStart || a.BpOccupiedEnd != tt.wantEnd {
				t.Errorf("occupied = (%d, %d), want (%d, %d)", a.BpOccupiedStart, a.BpOccupiedEnd, tt.wantStart, tt.wantEnd)
			}
			if a.BpLength != tt.wantLen {
				t.Errorf("BpLength = %d, want %d", a.BpLength, tt.wantLen)
			}
			interior := 0
			for _, n := range a.Nodes[1 : len(a.Nodes)-1] {
				interior += n.Length
			}
			if a.BpLength != a.BpOccupiedStart+a.BpOccupiedEnd+interior {
				t.Errorf("BpLength %d breaks occupied+interior invariant", a.BpLength)
			}
		})
	}
}

func TestEqualIsReversalInvariant(t *testing.T) {
	a := New(nodes(12, 5, true, 7, 3, false, 3, 5, true), "s")
	rev := New(Reverse(a.Nodes), "s")

	if got := rev.String(); got != "<3>7<12" {
		t.Fatalf("reverse = %s, want <3>7<12", got)
	}
	if !Equal(a, rev) {
		t.Errorf("Equal(%s, %s) = false, want true", a, rev)
	}
	if !Equal(a, a) {
		t.Errorf("Equal(a, a) = false")
	}

	// Reversing the order without flipping orientations is a different path.
	plain := New(nodes(3, 5, true, 7, 3, false, 12, 5, true), "s")
	if Equal(a, plain) {
		t.Errorf("Equal(%s, %s) = true, want false", a, plain)
	}
	other := New(nodes(12, 5, true, 8, 3, false, 3, 5, true), "s")
	if Equal(a, other) {
		t.Errorf("Equal(%s, %s) = true, want false", a, other)
	}
}

func TestSentinelIndependentOfDirection(t *testing.T) {
	tests := []struct {
		name  string
		nodes []OrientedNode
		want  int64
	}{
		{"odd", nodes(1, 4, true, 2, 1, true, 3, 4, true), 2},
		{"even lower id first", nodes(1, 4, true, 5, 1, true, 9, 1, true, 3, 4, true), 5},
		{"even lower id second", nodes(1, 4, true, 9, 1, true, 5, 1, true, 3, 4, true), 5},
		{"two nodes", nodes(8, 4, true, 6, 4, true), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.nodes, "s")
			if got := a.Sentinel(); got != tt.want {
				t.Errorf("Sentinel() = %d, want %d", got, tt.want)
			}
			r := New(Reverse(tt.nodes), "s")
			if got := r.Sentinel(); got != tt.want {
				t.Errorf("reversed Sentinel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPathStringRoundTrip(t *testing.T) {
	a := New(nodes(12, 5, true, 7, 3, false, 3, 5, true), "s")
	if got := a.String(); got != ">12<7>3" {
		t.Fatalf("String() = %q, want >12<7>3", got)
	}
	parsed, err := ParsePath(a.String())
	if err != nil {
		t.Fatal(err)
	}
	if !EqualPaths(parsed, a.Nodes) {
		t.Errorf("ParsePath = %v, want %v", parsed, a.Nodes)
	}
	if got := a.BandageString(); got != "12,7,3" {
		t.Errorf("BandageString() = %q", got)
	}
	if _, err := ParsePath("12>7"); err == nil {
		t.Error("ParsePath accepted a path without a leading orientation")
	}
}

func TestRecordRelativeStrand(t *testing.T) {
	a := New(nodes(1, 10, true, 2, 1, true, 3, 10, true), "s")

	first, ok := a.Record(ReadMatch{ReadID: "r1", Start: 5, End: 16, CsLeft: 2, CsRight: 3, ReadLength: 100}, false)
	if !ok || !first.RelativeStrand {
		t.Fatalf("first read: ok=%v relative=%v, want true true", ok, first.RelativeStrand)
	}
	if a.StrandRef {
		t.Errorf("StrandRef = %v, want false", a.StrandRef)
	}

	// Opposite orientation: mirrored into the first read's frame.
	second, ok := a.Record(ReadMatch{ReadID: "r2", Start: 10, End: 21, CsLeft: 1, CsRight: 4, ReadLength: 50}, true)
	if !ok {
		t.Fatal("second read rejected")
	}
	if second.RelativeStrand {
		t.Error("second read RelativeStrand = true, want false")
	}
	if second.Start != 29 || second.End != 40 {
		t.Errorf("second span = [%d,%d), want [29,40)", second.Start, second.End)
	}
	if second.CsLeft != 4 || second.CsRight != 1 {
		t.Errorf("second slack = (%d,%d), want (4,1)", second.CsLeft, second.CsRight)
	}
	if second.End-second.Start != a.BpLength {
		t.Errorf("span length %d, want BpLength %d", second.End-second.Start, a.BpLength)
	}

	if _, ok := a.Record(ReadMatch{ReadID: "r1", Start: 0, End: 11, ReadLength: 100}, false); ok {
		t.Error("duplicate read recorded twice")
	}
	if a.NumSequences() != 2 {
		t.Errorf("NumSequences() = %d, want 2", a.NumSequences())
	}
	if !a.HasRead("r2") || a.HasRead("r3") {
		t.Error("HasRead reports wrong membership")
	}
}

func TestAddReferencePathSortedUnique(t *testing.T) {
	a := New(nodes(1, 2, true, 2, 2, true), "s")
	for _, p := range []string{"b", "a", "b", "c"} {
		a.AddReferencePath(p)
	}
	want := []string{"a", "b", "c"}
	if len(a.ReferencePaths) != len(want) {
		t.Fatalf("ReferencePaths = %v, want %v", a.ReferencePaths, want)
	}
	for i := range want {
		if a.ReferencePaths[i] != want[i] {
			t.Errorf("ReferencePaths[%d] = %q, want %q", i, a.ReferencePaths[i], want[i])
		}
	}
}
