package report

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/graph"
)

// Link groups anchors connected by more than minShared common reads,
// directly or through other anchors. Groups have at least two anchors and
// are ordered by their first anchor.
func Link(dict *anchor.Dictionary, minShared int) [][]*anchor.Anchor {
	all := dict.All()
	byRead := make(map[string][]uint32)
	for i, a := range all {
		for _, r := range a.Reads {
			byRead[r.ReadID] = append(byRead[r.ReadID], uint32(i))
		}
	}

	shared := make(map[[2]uint32]int)
	for _, idx := range byRead {
		for i := range idx {
			for j := i + 1; j < len(idx); j++ {
				x, y := min(idx[i], idx[j]), max(idx[i], idx[j])
				if x != y {
					shared[[2]uint32{x, y}]++
				}
			}
		}
	}

	uf := graph.NewUnionFind(uint32(len(all)))
	for pair, n := range shared {
		if n > minShared {
			uf.Union(pair[0], pair[1])
		}
	}

	members := make(map[uint32][]*anchor.Anchor)
	var roots []uint32
	for i, a := range all {
		root := uf.Find(uint32(i))
		if uf.Size(root) < 2 {
			continue
		}
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], a)
	}
	groups := make([][]*anchor.Anchor, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, members[root])
	}
	return groups
}

// WriteLinkage writes one TSV row per group: its index, size and paths.
func WriteLinkage(w io.Writer, groups [][]*anchor.Anchor) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "group\tanchors\tpaths")
	for i, g := range groups {
		paths := make([]string, len(g))
		for j, a := range g {
			paths[j] = a.String()
		}
		slices.Sort(paths)
		fmt.Fprintf(bw, "%d\t%d\t%s\n", i, len(g), strings.Join(paths, ","))
	}
	return bw.Flush()
}
