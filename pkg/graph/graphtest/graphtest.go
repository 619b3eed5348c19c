// Package graphtest builds small in-memory graphs from GFA text for tests.
package graphtest

import (
	"context"
	"strings"
	"testing"

	"snarl_anchors/pkg/gfa"
	"snarl_anchors/pkg/graph"
)

// FromGFA parses gfaText and the JSON snarl lines and builds the graph,
// failing the test on any error.
func FromGFA(t testing.TB, gfaText, snarlJSON string) *graph.Graph {
	t.Helper()
	doc, err := gfa.Parse(context.Background(), strings.NewReader(gfaText))
	if err != nil {
		t.Fatalf("parse GFA: %v", err)
	}
	snarls, err := gfa.ParseSnarls(strings.NewReader(snarlJSON))
	if err != nil {
		t.Fatalf("parse snarls: %v", err)
	}
	g, err := graph.Build(doc, snarls)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

// Bubble is a single snarl 1 -> {2 | 3} -> 4 with two reference paths,
// one per allele. Node lengths: 1:20, 2:1, 3:1, 4:20.
const Bubble = `S	1	AAAAACCCCCGGGGGTTTTT
S	2	A
S	3	C
S	4	TTTTTGGGGGCCCCCAAAAA
L	1	+	2	+	0M
L	1	+	3	+	0M
L	2	+	4	+	0M
L	3	+	4	+	0M
P	CHM13#0#chr1	1+,2+,4+	*
P	HG002#1#chr1	1+,3+,4+	*
`

// BubbleSnarls is the snarl decomposition of Bubble.
const BubbleSnarls = `{"start": {"node_id": "1"}, "end": {"node_id": "4"}}
`
