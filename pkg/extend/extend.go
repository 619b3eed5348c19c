// Package extend lengthens short anchors into the surrounding graph and
// merges anchors of adjacent snarls that the same reads support.
//
// Anchors are grouped by snarl. Every group is first extended node by node
// across degree-1 boundaries, then short groups are merged with groups
// sharing a boundary node. Both passes visit heterozygous snarls (more than
// one anchor) before homozygous ones, and neither ever leaves a
// heterozygous snarl with fewer than two supported anchors.
package extend

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/graph"
)

// Round selects how many reads an extension step may drop.
type Round int

const (
	// RoundStrict forbids dropping reads.
	RoundStrict Round = iota
	// RoundFraction drops up to DropFraction of an anchor's reads while
	// keeping at least MinCoverage.
	RoundFraction
	// RoundFloor drops reads down to MinCoverage.
	RoundFloor
)

var rounds = []Round{RoundStrict, RoundFraction, RoundFloor}

func (r Round) String() string {
	switch r {
	case RoundStrict:
		return "strict"
	case RoundFraction:
		return "fraction"
	case RoundFloor:
		return "floor"
	}
	return "round(" + strconv.Itoa(int(r)) + ")"
}

// Stats summarizes an extender run.
type Stats struct {
	Anchors         int // anchors with enough read support
	Snarls          int
	Heterozygous    int
	Steps           int // committed extension steps
	Short           int // snarls still below the minimum length after extension
	Merges          int
	MergesAbandoned int
	DroppedReads    int
}

// Result is the finalized anchor set.
type Result struct {
	Dictionary *anchor.Dictionary
	Audit      *Audit
	Stats      Stats
}

// Extender runs extension and merging over one dictionary. It is not safe
// for concurrent use.
type Extender struct {
	g   *graph.Graph
	cfg config.Extend

	groups     map[string][]*anchor.Anchor
	byBoundary map[int64][]string
	audit      *Audit
	stats      Stats
}

// New returns an extender reading node lengths and edges from g.
func New(g *graph.Graph, cfg config.Extend) *Extender {
	return &Extender{g: g, cfg: cfg}
}

// Run extends and merges the anchors of dict that have at least
// MinReadSupport reads. Anchors are modified in place. Running it again on
// its own result changes nothing.
func (e *Extender) Run(dict *anchor.Dictionary) (*Result, error) {
	start := time.Now()
	e.groups = make(map[string][]*anchor.Anchor)
	e.audit = NewAudit()
	e.stats = Stats{}

	for _, a := range dict.All() {
		if a.NumSequences() < e.cfg.MinReadSupport {
			continue
		}
		e.groups[a.SnarlID] = append(e.groups[a.SnarlID], a)
		e.audit.recordInitial(a)
		e.stats.Anchors++
	}
	for _, list := range e.groups {
		slices.SortFunc(list, func(a, b *anchor.Anchor) int { return strings.Compare(a.String(), b.String()) })
	}

	order := e.order()
	e.stats.Snarls = len(order)
	for _, id := range order {
		if len(e.groups[id]) > 1 {
			e.stats.Heterozygous++
		}
	}
	log.Printf("extend: %d anchors in %d snarls (%d heterozygous)", e.stats.Anchors, e.stats.Snarls, e.stats.Heterozygous)

	for _, id := range order {
		if err := e.extendSnarl(id); err != nil {
			return nil, fmt.Errorf("extend snarl %s: %w", id, err)
		}
	}
	log.Printf("extend: %d steps, %d snarls still short (%v)", e.stats.Steps, e.stats.Short, time.Since(start))

	e.merge(e.order())
	log.Printf("extend: %d merges, %d abandoned (%v)", e.stats.Merges, e.stats.MergesAbandoned, time.Since(start))

	var all []*anchor.Anchor
	for _, id := range e.order() {
		for _, a := range e.groups[id] {
			e.audit.recordFinal(a)
			all = append(all, a)
		}
	}
	return &Result{Dictionary: anchor.FromAnchors(all), Audit: e.audit, Stats: e.stats}, nil
}

// order returns the active snarl ids, heterozygous ones first.
func (e *Extender) order() []string {
	ids := make([]string, 0, len(e.groups))
	for id := range e.groups {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		ha, hb := len(e.groups[a]) > 1, len(e.groups[b]) > 1
		if ha != hb {
			if ha {
				return -1
			}
			return 1
		}
		return compareSnarlIDs(a, b)
	})
	return ids
}

// compareSnarlIDs orders ids by their leading number, so "9" sorts before
// "10" and merged ids "3-4" follow "3".
func compareSnarlIDs(a, b string) int {
	lead := func(s string) (int, bool) {
		head, _, _ := strings.Cut(s, "-")
		n, err := strconv.Atoi(head)
		return n, err == nil
	}
	na, oka := lead(a)
	nb, okb := lead(b)
	if oka && okb && na != nb {
		return cmp.Compare(na, nb)
	}
	if oka != okb {
		if oka {
			return -1
		}
		return 1
	}
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

func shortest(anchors []*anchor.Anchor) int {
	n := anchors[0].BpLength
	for _, a := range anchors[1:] {
		n = min(n, a.BpLength)
	}
	return n
}
