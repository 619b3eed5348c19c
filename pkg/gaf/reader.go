package gaf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/grailbio/base/log"
)

// Source yields alignments until it returns io.EOF.
type Source interface {
	Next() (*Alignment, error)
}

// Reader is a Source over a GAF stream.
type Reader struct {
	sc      *bufio.Scanner
	filter  Filter
	lineNo  int
	skipped atomic.Int64
	parsed  atomic.Int64
}

const maxLineBytes = 1 << 28

// NewReader reads GAF lines from r, skipping alignments rejected by f.
func NewReader(r io.Reader, f Filter) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	return &Reader{sc: sc, filter: f}
}

// Next returns the next usable alignment.
func (r *Reader) Next() (*Alignment, error) {
	for r.sc.Scan() {
		r.lineNo++
		line := r.sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		aln, err := ParseLine(line, r.filter)
		if errors.Is(err, ErrSkipped) {
			r.skipped.Add(1)
			log.Debug.Printf("gaf line %d: %v", r.lineNo, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("gaf line %d: %w", r.lineNo, err)
		}
		r.parsed.Add(1)
		return aln, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("scan gaf: %w", err)
	}
	return nil, io.EOF
}

// Counts returns the number of alignments returned and skipped so far.
func (r *Reader) Counts() (parsed, skipped int64) {
	return r.parsed.Load(), r.skipped.Load()
}

// SliceSource is a Source over alignments held in memory.
type SliceSource struct {
	alns []*Alignment
	i    int
}

// NewSliceSource returns a Source yielding alns in order.
func NewSliceSource(alns ...*Alignment) *SliceSource {
	return &SliceSource{alns: alns}
}

// Next implements Source.
func (s *SliceSource) Next() (*Alignment, error) {
	if s.i >= len(s.alns) {
		return nil, io.EOF
	}
	s.i++
	return s.alns[s.i-1], nil
}
