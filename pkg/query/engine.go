// Package query answers lookups against a finished anchor dictionary.
package query

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/tidwall/rtree"

	"snarl_anchors/pkg/anchor"
)

// ErrNotFound is returned when no anchor matches a lookup.
var ErrNotFound = errors.New("anchor not found")

// ErrBadRange is returned for a region whose end precedes its start.
var ErrBadRange = errors.New("region end before start")

// Querier is the interface for anchor queries.
type Querier interface {
	Sentinel(ctx context.Context, id int64) ([]*anchor.Anchor, error)
	Region(ctx context.Context, start, end int) ([]*anchor.Anchor, error)
}

// Stats describes the indexed dictionary.
type Stats struct {
	Sentinels int
	Anchors   int
	Placed    int // anchors with a genomic position
	Reads     int
}

// Engine implements Querier over an immutable dictionary. Anchors with a
// genomic position are indexed by the reference interval they span.
type Engine struct {
	dict  *anchor.Dictionary
	tree  rtree.RTreeG[*anchor.Anchor]
	stats Stats
}

// NewEngine indexes dict. The dictionary must not change afterwards.
func NewEngine(dict *anchor.Dictionary) *Engine {
	e := &Engine{dict: dict}
	e.stats.Sentinels = len(dict.Sentinels())
	for _, a := range dict.All() {
		e.stats.Anchors++
		e.stats.Reads += a.NumSequences()
		if a.GenomicPosition <= 0 {
			continue
		}
		e.stats.Placed++
		lo, hi := span(a)
		e.tree.Insert([2]float64{lo, 0}, [2]float64{hi, 0}, a)
	}
	return e
}

func span(a *anchor.Anchor) (lo, hi float64) {
	lo = float64(a.GenomicPosition)
	return lo, lo + float64(max(a.BpLength, 1)-1)
}

// Stats returns counts computed when the engine was built.
func (e *Engine) Stats() Stats { return e.stats }

// Sentinel returns the anchors of the snarl keyed by id.
func (e *Engine) Sentinel(ctx context.Context, id int64) ([]*anchor.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := e.dict.Lookup(id)
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list, nil
}

// Region returns the placed anchors whose reference span intersects the
// closed interval [start, end], ordered by position then path.
func (e *Engine) Region(ctx context.Context, start, end int) ([]*anchor.Anchor, error) {
	if end < start {
		return nil, ErrBadRange
	}
	var out []*anchor.Anchor
	var err error
	e.tree.Search([2]float64{float64(start), 0}, [2]float64{float64(end), 0},
		func(_, _ [2]float64, a *anchor.Anchor) bool {
			if len(out)%1024 == 0 {
				if err = ctx.Err(); err != nil {
					return false
				}
			}
			out = append(out, a)
			return true
		})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	slices.SortFunc(out, func(a, b *anchor.Anchor) int {
		if a.GenomicPosition != b.GenomicPosition {
			return a.GenomicPosition - b.GenomicPosition
		}
		return strings.Compare(a.String(), b.String())
	})
	return out, nil
}
