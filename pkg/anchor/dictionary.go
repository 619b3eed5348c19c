package anchor

import (
	"slices"
	"sync"
)

// Dictionary maps sentinel node ids to the anchors sentineled there. A
// sentinel with several anchors is a heterozygous locus.
type Dictionary struct {
	mu      sync.RWMutex
	Anchors map[int64][]*Anchor
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{Anchors: make(map[int64][]*Anchor)}
}

// Lookup returns the anchors sentineled at id.
func (d *Dictionary) Lookup(id int64) []*Anchor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Anchors[id]
}

// Insert adds a under its sentinel. When an equal anchor is already
// present, a's reference paths are merged into it and the existing anchor
// is returned with inserted false.
func (d *Dictionary) Insert(a *Anchor) (stored *Anchor, inserted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := a.Sentinel()
	for _, cur := range d.Anchors[key] {
		if Equal(cur, a) {
			for _, p := range a.ReferencePaths {
				cur.AddReferencePath(p)
			}
			return cur, false
		}
	}
	d.Anchors[key] = append(d.Anchors[key], a)
	return a, true
}

// Sentinels returns the sentinel ids in ascending order.
func (d *Dictionary) Sentinels() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]int64, 0, len(d.Anchors))
	for k := range d.Anchors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// All returns every anchor ordered by sentinel, then insertion order.
func (d *Dictionary) All() []*Anchor {
	var out []*Anchor
	for _, k := range d.Sentinels() {
		out = append(out, d.Lookup(k)...)
	}
	return out
}

// Len returns the number of anchors.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, list := range d.Anchors {
		n += len(list)
	}
	return n
}

// Filter returns a dictionary sharing the anchors for which keep is true.
func (d *Dictionary) Filter(keep func(*Anchor) bool) *Dictionary {
	out := NewDictionary()
	for _, a := range d.All() {
		if keep(a) {
			out.Anchors[a.Sentinel()] = append(out.Anchors[a.Sentinel()], a)
		}
	}
	return out
}

// FromAnchors builds a dictionary from a list, keying every anchor by its
// current sentinel. Equal anchors are merged as in Insert.
func FromAnchors(anchors []*Anchor) *Dictionary {
	d := NewDictionary()
	for _, a := range anchors {
		d.Insert(a)
	}
	return d
}
