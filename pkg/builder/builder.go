// Package builder derives candidate anchors from the leaf snarls of a
// variation graph by walking the reference paths through each snarl.
package builder

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/exascience/pargo/parallel"
	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/graph"
)

// Stats summarizes a dictionary build.
type Stats struct {
	Snarls       int
	LeafSnarls   int
	SkippedLarge int // leaf snarls over MaxNodesInSnarl
	Extended     int // leaf snarls whose boundaries were moved outwards
	Collisions   int // snarls sharing a lookup key with an earlier snarl
	PathsScanned int
	Candidates   int
	Ambiguous    int // snarls dropped for exceeding MaxPathsInSnarl
	Anchors      int
}

// Builder builds anchor dictionaries.
type Builder struct {
	g   *graph.Graph
	cfg config.Build
}

// New returns a builder over g.
func New(g *graph.Graph, cfg config.Build) *Builder {
	return &Builder{g: g, cfg: cfg}
}

// leafSnarl is a leaf snarl with its (possibly extended) boundaries.
type leafSnarl struct {
	index    int
	id       string
	start    graph.Handle
	end      graph.Handle
	interior []int64
	ok       bool
	extended bool
}

// Build runs the snarl traversal and path scans and returns the
// deduplicated dictionary.
func (b *Builder) Build(ctx context.Context) (*anchor.Dictionary, Stats, error) {
	var stats Stats
	stats.Snarls = len(b.g.Snarls)

	// Step 1: Leaf snarls.
	t := time.Now()
	var leaves []*leafSnarl
	b.g.TraverseDecomposition(func(idx int, s *graph.Snarl) bool {
		if b.g.IsLeaf(idx) {
			leaves = append(leaves, &leafSnarl{index: idx, start: s.Start, end: s.End})
		}
		return true
	})
	stats.LeafSnarls = len(leaves)
	log.Printf("builder: %d leaf snarls of %d (%v)", len(leaves), stats.Snarls, time.Since(t))

	// Step 2: Interior nodes, in parallel across snarls.
	t = time.Now()
	forEach(len(leaves), b.cfg.Workers, func(i int) {
		leaves[i].interior, leaves[i].ok = b.g.InteriorNodes(leaves[i].index, b.cfg.MaxNodesInSnarl)
	})
	usable := leaves[:0]
	for _, l := range leaves {
		if !l.ok {
			stats.SkippedLarge++
			log.Debug.Printf("builder: snarl %d skipped, more than %d interior nodes", l.index, b.cfg.MaxNodesInSnarl)
			continue
		}
		usable = append(usable, l)
	}
	leaves = usable
	for i, l := range leaves {
		l.id = strconv.Itoa(i + 1)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	log.Printf("builder: interior nodes of %d snarls (%d too large) (%v)", len(leaves), stats.SkippedLarge, time.Since(t))

	// Step 3: Boundary extension for short snarls.
	if b.cfg.ExtendBoundaries {
		t = time.Now()
		claimed := make(map[uint32]int)
		for _, l := range leaves {
			claimed[l.start.Index()]++
			claimed[l.end.Index()]++
		}
		forEach(len(leaves), b.cfg.Workers, func(i int) {
			b.extendBoundaries(leaves[i], claimed)
		})
		for _, l := range leaves {
			if l.extended {
				stats.Extended++
			}
		}
		log.Printf("builder: extended boundaries of %d snarls (%v)", stats.Extended, time.Since(t))
	}

	// Step 4: Lookup tables keyed by the lower and the higher boundary id.
	forward, reverse := make(map[int64]*Boundary), make(map[int64]*Boundary)
	for i, l := range leaves {
		lo, hi := b.g.ID(l.start), b.g.ID(l.end)
		if hi < lo {
			lo, hi = hi, lo
		}
		interior := make(map[int64]struct{}, len(l.interior))
		for _, id := range l.interior {
			interior[id] = struct{}{}
		}
		if _, dup := forward[lo]; dup {
			stats.Collisions++
		}
		if _, dup := reverse[hi]; dup {
			stats.Collisions++
		}
		forward[lo] = &Boundary{End: hi, Snarl: i, Interior: interior}
		reverse[hi] = &Boundary{End: lo, Snarl: i, Interior: interior}
	}

	// Step 5: Paths touching a snarl, sorted by name.
	seen := make(map[int]bool)
	for id := range forward {
		b.g.ForEachStepOnNode(id, func(s graph.StepRef) bool {
			seen[s.Path] = true
			return true
		})
	}
	paths := make([]int, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, func(x, y int) int {
		return strings.Compare(b.g.PathNames[x], b.g.PathNames[y])
	})
	stats.PathsScanned = len(paths)

	// Step 6: Scan every path in both directions, in parallel across paths.
	t = time.Now()
	found := make([][]Candidate, len(paths))
	forEach(len(paths), b.cfg.Workers, func(i int) {
		steps := b.orientedSteps(paths[i])
		found[i] = append(ScanPath(steps, reverse), ScanPath(steps, forward)...)
	})
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	log.Printf("builder: scanned %d paths (%v)", len(paths), time.Since(t))

	// Step 7: Group traversals per snarl, serially and in path order.
	perSnarl := make([][]*anchor.Anchor, len(leaves))
	for i, cands := range found {
		name := b.g.PathNames[paths[i]]
		for _, c := range cands {
			if len(c.Nodes) < b.cfg.MinNodesInAnchor {
				continue
			}
			stats.Candidates++
			a := anchor.New(c.Nodes, leaves[c.Snarl].id)
			a.AddReferencePath(name)
			group := perSnarl[c.Snarl]
			merged := false
			for _, cur := range group {
				if anchor.Equal(cur, a) {
					cur.AddReferencePath(name)
					merged = true
					break
				}
			}
			if !merged {
				perSnarl[c.Snarl] = append(group, a)
			}
		}
	}

	dict := anchor.NewDictionary()
	for i, group := range perSnarl {
		if len(group) > b.cfg.MaxPathsInSnarl {
			stats.Ambiguous++
			log.Debug.Printf("builder: snarl %s dropped, %d traversals", leaves[i].id, len(group))
			continue
		}
		for _, a := range group {
			dict.Insert(a)
		}
	}
	stats.Anchors = dict.Len()
	log.Printf("builder: %d anchors from %d candidates, %d ambiguous snarls", stats.Anchors, stats.Candidates, stats.Ambiguous)
	return dict, stats, nil
}

func (b *Builder) orientedSteps(p int) []anchor.OrientedNode {
	steps := b.g.Steps(p)
	out := make([]anchor.OrientedNode, len(steps))
	for i, h := range steps {
		out[i] = anchor.OrientedNode{ID: b.g.ID(h), Length: b.g.Len(h), Forward: !h.IsReverse()}
	}
	return out
}

// extendBoundaries moves the boundaries of a short snarl outwards along
// nodes with a single neighbour until the occupied length reaches
// MinAnchorLength. The side with the longer boundary node goes first.
// Extension never moves onto or past a node that bounds another snarl.
func (b *Builder) extendBoundaries(l *leafSnarl, claimed map[uint32]int) {
	g := b.g
	occupied := g.Len(l.start)/2 + g.Len(l.end)/2
	if occupied >= b.cfg.MinAnchorLength {
		return
	}

	own := map[uint32]bool{l.start.Index(): true, l.end.Index(): true}
	for _, id := range l.interior {
		if i, ok := g.Index(id); ok {
			own[i] = true
		}
	}

	expand := func(cur graph.Handle, goLeft bool) graph.Handle {
		if claimed[cur.Index()] > 1 {
			return cur
		}
		for occupied < b.cfg.MinAnchorLength {
			if g.Degree(cur, goLeft) != 1 {
				break
			}
			var next graph.Handle
			g.FollowEdges(cur, goLeft, func(h graph.Handle) bool {
				next = h
				return false
			})
			if own[next.Index()] || claimed[next.Index()] > 0 {
				break
			}
			occupied += g.Len(cur) - g.Len(cur)/2 + g.Len(next)/2
			l.interior = append(l.interior, g.ID(cur))
			own[next.Index()] = true
			cur = next
			l.extended = true
		}
		return cur
	}

	startFirst := g.Len(l.start) > g.Len(l.end)
	if startFirst {
		l.start = expand(l.start, true)
		l.end = expand(l.end, false)
	} else {
		l.end = expand(l.end, false)
		l.start = expand(l.start, true)
	}
}

// AddPositions sets the genomic position of every anchor from the
// cumulative coordinates of the reference path whose name contains
// ReferencePathHint. Anchors not on that path get the position of their
// furthest node on it, or 0.
func (b *Builder) AddPositions(dict *anchor.Dictionary) {
	hint := strings.ToLower(b.cfg.ReferencePathHint)
	ref := -1
	for i, name := range b.g.PathNames {
		if strings.Contains(strings.ToLower(name), hint) && (ref < 0 || name < b.g.PathNames[ref]) {
			ref = i
		}
	}
	if ref < 0 {
		log.Error.Printf("builder: no path matching %q, positions left unset", b.cfg.ReferencePathHint)
		return
	}
	log.Printf("builder: positions from path %s", b.g.PathNames[ref])

	pos := make(map[int64]int)
	total := 0
	for _, h := range b.g.Steps(ref) {
		total += b.g.Len(h)
		pos[b.g.ID(h)] = total
	}
	for _, a := range dict.All() {
		first, okFirst := pos[a.Nodes[0].ID]
		last, okLast := pos[a.Nodes[len(a.Nodes)-1].ID]
		if okFirst && okLast {
			a.GenomicPosition = (first + last) / 2
			continue
		}
		best := 0
		for _, n := range a.Nodes {
			best = max(best, pos[n.ID])
		}
		a.GenomicPosition = best
	}
}

// forEach calls fn for 0 <= i < n, split over workers goroutines.
func forEach(n, workers int, fn func(i int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	parallel.Range(0, n, workers, func(low, high int) {
		for i := low; i < high; i++ {
			fn(i)
		}
	})
}
