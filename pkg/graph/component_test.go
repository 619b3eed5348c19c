package graph_test

import (
	"testing"

	"snarl_anchors/pkg/graph"
	"snarl_anchors/pkg/graph/graphtest"
)

func TestUnionFind(t *testing.T) {
	uf := graph.NewUnionFind(5)

	// Initially all separate.
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}
	uf.Union(2, 3)
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}
	if uf.Union(1, 0) {
		t.Error("Union of an existing set should return false")
	}

	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
	if uf.Size(2) != 4 {
		t.Errorf("Size(2) = %d, want 4", uf.Size(2))
	}
}

func TestComponents(t *testing.T) {
	// The bubble plus a detached two-node piece joined in reverse.
	gfaText := graphtest.Bubble + "S\t10\tAAA\nS\t11\tCC\nL\t10\t+\t11\t-\t0M\n"
	g := graphtest.FromGFA(t, gfaText, graphtest.BubbleSnarls)

	st := graph.Components(g)
	if st.Count != 2 {
		t.Errorf("Count = %d, want 2", st.Count)
	}
	if st.LargestSize != 4 {
		t.Errorf("LargestSize = %d, want 4", st.LargestSize)
	}
	if st.LargestBp != 42 {
		t.Errorf("LargestBp = %d, want 42", st.LargestBp)
	}
}
