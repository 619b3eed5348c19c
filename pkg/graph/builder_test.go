package graph_test

import (
	"errors"
	"testing"

	"snarl_anchors/pkg/gfa"
	"snarl_anchors/pkg/graph"
	"snarl_anchors/pkg/graph/graphtest"
)

func TestBuildBubble(t *testing.T) {
	g := graphtest.FromGFA(t, graphtest.Bubble, graphtest.BubbleSnarls)

	if g.NumNodes != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes)
	}
	// Four links, each stored in both directions.
	if g.NumEdges != 8 {
		t.Fatalf("NumEdges = %d, want 8", g.NumEdges)
	}

	h1, err := g.HandleOf(1, false)
	if err != nil {
		t.Fatal(err)
	}
	if d := g.Degree(h1, false); d != 2 {
		t.Errorf("Degree(>1, right) = %d, want 2", d)
	}
	if d := g.Degree(h1, true); d != 0 {
		t.Errorf("Degree(>1, left) = %d, want 0", d)
	}

	h4, _ := g.HandleOf(4, false)
	var left []int64
	g.FollowEdges(h4, true, func(h graph.Handle) bool {
		left = append(left, g.ID(h))
		if h.IsReverse() {
			t.Errorf("left neighbour %d should read forward into >4", g.ID(h))
		}
		return true
	})
	if len(left) != 2 || left[0] != 2 || left[1] != 3 {
		t.Errorf("left neighbours of >4 = %v, want [2 3]", left)
	}

	// Reverse handles see the mirrored neighbourhood.
	if d := g.Degree(h4.Flip(), false); d != 2 {
		t.Errorf("Degree(<4, right) = %d, want 2", d)
	}
	if d := g.Degree(h4.Flip(), true); d != 0 {
		t.Errorf("Degree(<4, left) = %d, want 0", d)
	}
	if d := g.Degree(h1.Flip(), true); d != 2 {
		t.Errorf("Degree(<1, left) = %d, want 2", d)
	}
}

func TestBuildCSRInvariants(t *testing.T) {
	g := graphtest.FromGFA(t, graphtest.Bubble, graphtest.BubbleSnarls)

	numHandles := 2 * g.NumNodes
	for i := uint32(1); i <= numHandles; i++ {
		if g.FirstOut[i] < g.FirstOut[i-1] {
			t.Errorf("FirstOut[%d]=%d < FirstOut[%d]=%d, not monotonic", i, g.FirstOut[i], i-1, g.FirstOut[i-1])
		}
	}
	if g.FirstOut[numHandles] != g.NumEdges {
		t.Errorf("FirstOut[%d]=%d != NumEdges=%d", numHandles, g.FirstOut[numHandles], g.NumEdges)
	}
	for i, h := range g.Head {
		if uint32(h) >= numHandles {
			t.Errorf("Head[%d]=%d >= handles=%d", i, h, numHandles)
		}
	}
}

func TestBuildPathsAndSteps(t *testing.T) {
	g := graphtest.FromGFA(t, graphtest.Bubble, graphtest.BubbleSnarls)

	if g.NumPaths() != 2 {
		t.Fatalf("NumPaths = %d, want 2", g.NumPaths())
	}
	p, ok := g.PathByName("HG002#1#chr1")
	if !ok {
		t.Fatal("HG002 path missing")
	}
	steps := g.Steps(p)
	if len(steps) != 3 || g.ID(steps[1]) != 3 {
		t.Errorf("HG002 steps = %v", steps)
	}

	var refs []graph.StepRef
	g.ForEachStepOnNode(4, func(r graph.StepRef) bool {
		refs = append(refs, r)
		return true
	})
	if len(refs) != 2 {
		t.Fatalf("steps on node 4 = %v, want 2", refs)
	}
	for _, r := range refs {
		if r.Rank != 2 {
			t.Errorf("node 4 visited at rank %d, want 2", r.Rank)
		}
	}
}

func TestBuildSequence(t *testing.T) {
	g := graphtest.FromGFA(t, graphtest.Bubble, graphtest.BubbleSnarls)
	h, _ := g.HandleOf(1, true)
	if got := g.Sequence(h); got != "AAAAACCCCCGGGGGTTTTT" {
		t.Errorf("Sequence(<1) = %q", got)
	}
	h, _ = g.HandleOf(4, false)
	if got := g.Sequence(h); got != "TTTTTGGGGGCCCCCAAAAA" {
		t.Errorf("Sequence(>4) = %q", got)
	}
}

func TestBuildUnknownNode(t *testing.T) {
	doc := &gfa.Document{
		Segments: []gfa.Segment{{ID: 1, Length: 5}},
		Links:    []gfa.Link{{From: 1, To: 9}},
	}
	_, err := graph.Build(doc, nil)
	if !errors.Is(err, graph.ErrUnknownNode) {
		t.Fatalf("err = %v, want ErrUnknownNode", err)
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	g, err := graph.Build(&gfa.Document{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.NumNodes != 0 || g.NumEdges != 0 {
		t.Errorf("NumNodes=%d NumEdges=%d, want 0", g.NumNodes, g.NumEdges)
	}
}

func TestSnarlTree(t *testing.T) {
	const nested = `S	1	*	LN:i:10
S	2	*	LN:i:10
S	3	*	LN:i:1
S	4	*	LN:i:1
S	5	*	LN:i:10
S	6	*	LN:i:10
S	7	*	LN:i:5
L	1	+	2	+	0M
L	2	+	3	+	0M
L	2	+	4	+	0M
L	3	+	5	+	0M
L	4	+	5	+	0M
L	5	+	6	+	0M
L	1	+	7	+	0M
L	7	+	6	+	0M
`
	const snarls = `{"start": {"node_id": "1"}, "end": {"node_id": "6"}}
{"start": {"node_id": "2"}, "end": {"node_id": "5"}, "parent": {"start": {"node_id": "1"}, "end": {"node_id": "6"}}}
`
	g := graphtest.FromGFA(t, nested, snarls)

	if g.IsLeaf(0) {
		t.Error("outer snarl reported as leaf")
	}
	if !g.IsLeaf(1) {
		t.Error("inner snarl should be a leaf")
	}
	if kids := g.Children(0); len(kids) != 1 || kids[0] != 1 {
		t.Errorf("Children(0) = %v, want [1]", kids)
	}

	ids, ok := g.InteriorNodes(1, 10)
	if !ok || len(ids) != 2 {
		t.Fatalf("InteriorNodes(1) = %v, %v; want 2 nodes", ids, ok)
	}
	if _, ok := g.InteriorNodes(0, 2); ok {
		t.Error("InteriorNodes should overflow with limit 2")
	}

	var visited []int
	g.TraverseDecomposition(func(idx int, s *graph.Snarl) bool {
		visited = append(visited, idx)
		return false
	})
	if len(visited) != 1 {
		t.Errorf("traversal did not stop early: %v", visited)
	}
}
