package query

import (
	"context"
	"errors"
	"testing"

	"snarl_anchors/pkg/anchor"
)

// placed builds a three node anchor of BpLength 30.
func placed(t *testing.T, path string, pos int, reads ...string) *anchor.Anchor {
	t.Helper()
	nodes, err := anchor.ParsePath(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := range nodes {
		nodes[i].Length = 20
	}
	nodes[1].Length = 10
	a := anchor.New(nodes, "1")
	a.GenomicPosition = pos
	var ms []anchor.ReadMatch
	for _, r := range reads {
		ms = append(ms, anchor.ReadMatch{ReadID: r, RelativeStrand: true, End: 30, ReadLength: 100})
	}
	a.SetReads(ms)
	return a
}

func testEngine(t *testing.T) *Engine {
	return NewEngine(anchor.FromAnchors([]*anchor.Anchor{
		placed(t, ">1>2>4", 100, "r1", "r2"),
		placed(t, ">1>3>4", 100, "r3"),
		placed(t, ">5>6>7", 200),
		placed(t, ">8>9>10", 0, "r4"),
	}))
}

func TestStats(t *testing.T) {
	got := testEngine(t).Stats()
	want := Stats{Sentinels: 4, Anchors: 4, Placed: 3, Reads: 4}
	if got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
}

func TestSentinel(t *testing.T) {
	e := testEngine(t)
	got, err := e.Sentinel(context.Background(), 2)
	if err != nil {
		t.Fatalf("Sentinel(2): %v", err)
	}
	if len(got) != 1 || got[0].String() != ">1>2>4" {
		t.Errorf("Sentinel(2) = %v", got)
	}
	if _, err := e.Sentinel(context.Background(), 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("Sentinel(4) err = %v, want ErrNotFound", err)
	}
}

func TestRegion(t *testing.T) {
	e := testEngine(t)
	tests := []struct {
		name       string
		start, end int
		want       []string
		err        error
	}{
		{"covers both", 0, 1000, []string{">1>2>4", ">1>3>4", ">5>6>7"}, nil},
		{"last base", 129, 129, []string{">1>2>4", ">1>3>4"}, nil},
		{"just past", 130, 199, nil, ErrNotFound},
		{"second only", 150, 210, []string{">5>6>7"}, nil},
		{"unplaced never returned", 0, 50, nil, ErrNotFound},
		{"reversed", 10, 5, nil, ErrBadRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Region(context.Background(), tt.start, tt.end)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d anchors, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].String() != tt.want[i] {
					t.Errorf("anchor %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRegionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testEngine(t).Region(ctx, 0, 1000); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
