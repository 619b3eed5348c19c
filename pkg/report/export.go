package report

import (
	"bufio"
	"io"
	"sort"

	psort "github.com/exascience/pargo/sort"

	"snarl_anchors/pkg/anchor"
)

// Record is the final assignment of reads to one anchor.
type Record struct {
	Path     string
	Position int
	Reads    []Entry
}

// recordSorter orders records by genomic position, then path. It
// implements psort.StableSorter.
type recordSorter []Record

func (s recordSorter) SequentialSort(i, j int) {
	recs := s[i:j]
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].less(recs[j]) })
}

func (s recordSorter) NewTemp() psort.StableSorter { return make(recordSorter, len(s)) }

func (s recordSorter) Len() int { return len(s) }

func (s recordSorter) Less(i, j int) bool { return s[i].less(s[j]) }

func (s recordSorter) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(recordSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

func (r Record) less(o Record) bool {
	if r.Position != o.Position {
		return r.Position < o.Position
	}
	return r.Path < o.Path
}

// Export builds one record per anchor, sorted by genomic position.
func Export(dict *anchor.Dictionary) []Record {
	all := dict.All()
	recs := make([]Record, len(all))
	for i, a := range all {
		recs[i] = Record{Path: a.String(), Position: a.GenomicPosition, Reads: entries(a)}
	}
	psort.StableSort(recordSorter(recs))
	return recs
}

// WriteExport writes one JSON record per line, as
// [path, [[read_id, strand, start, end], ...]].
func WriteExport(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	enc := newEncoder(bw)
	for _, r := range recs {
		if err := enc.Encode([]any{r.Path, rows(r.Reads)}); err != nil {
			return err
		}
	}
	return bw.Flush()
}
