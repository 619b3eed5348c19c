// Package gfa reads the text formats that describe a variation graph: GFA1
// segments, links, paths and walks, plus the snarl records emitted by vg.
package gfa

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Segment is a graph node.
type Segment struct {
	ID       int64
	Length   int
	Sequence string // empty when the GFA stores "*"
}

// Link joins the end of From (in its orientation) to the start of To.
type Link struct {
	From        int64
	FromReverse bool
	To          int64
	ToReverse   bool
}

// Step is one oriented visit of a path.
type Step struct {
	ID      int64
	Reverse bool
}

// Path is a named walk through the graph.
type Path struct {
	Name  string
	Steps []Step
}

// Document holds everything parsed from a GFA file.
type Document struct {
	Segments []Segment
	Links    []Link
	Paths    []Path
}

// maxLineBytes bounds a single GFA line. Chromosome-scale P lines can be
// hundreds of megabytes.
const maxLineBytes = 1 << 30

// Parse reads a GFA1 stream. Unknown record types are ignored.
func Parse(ctx context.Context, r io.Reader) (*Document, error) {
	doc := &Document{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")

		var err error
		switch fields[0] {
		case "S":
			err = doc.parseSegment(fields)
		case "L":
			err = doc.parseLink(fields)
		case "P":
			err = doc.parsePath(fields)
		case "W":
			err = doc.parseWalk(fields)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return doc, nil
}

func (doc *Document) parseSegment(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("S record has %d fields", len(fields))
	}
	id, err := parseID(fields[1])
	if err != nil {
		return err
	}
	seg := Segment{ID: id}
	if fields[2] != "*" {
		seg.Sequence = fields[2]
		seg.Length = len(fields[2])
	}
	for _, tag := range fields[3:] {
		if v, ok := strings.CutPrefix(tag, "LN:i:"); ok && seg.Sequence == "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("segment %d: bad LN tag %q", id, tag)
			}
			seg.Length = n
		}
	}
	if seg.Length <= 0 {
		return fmt.Errorf("segment %d has no length", id)
	}
	doc.Segments = append(doc.Segments, seg)
	return nil
}

func (doc *Document) parseLink(fields []string) error {
	if len(fields) < 5 {
		return fmt.Errorf("L record has %d fields", len(fields))
	}
	from, err := parseID(fields[1])
	if err != nil {
		return err
	}
	to, err := parseID(fields[3])
	if err != nil {
		return err
	}
	fromRev, err := parseOrient(fields[2])
	if err != nil {
		return err
	}
	toRev, err := parseOrient(fields[4])
	if err != nil {
		return err
	}
	doc.Links = append(doc.Links, Link{From: from, FromReverse: fromRev, To: to, ToReverse: toRev})
	return nil
}

func (doc *Document) parsePath(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("P record has %d fields", len(fields))
	}
	steps, err := ParseSteps(fields[2])
	if err != nil {
		return fmt.Errorf("path %s: %w", fields[1], err)
	}
	doc.Paths = append(doc.Paths, Path{Name: fields[1], Steps: steps})
	return nil
}

// parseWalk turns a W record into a path named with the PanSN convention
// sample#haplotype#sequence.
func (doc *Document) parseWalk(fields []string) error {
	if len(fields) < 7 {
		return fmt.Errorf("W record has %d fields", len(fields))
	}
	steps, err := ParseWalk(fields[6])
	if err != nil {
		return fmt.Errorf("walk %s: %w", fields[1], err)
	}
	name := fields[1] + "#" + fields[2] + "#" + fields[3]
	doc.Paths = append(doc.Paths, Path{Name: name, Steps: steps})
	return nil
}

// ParseSteps parses a P-line segment list such as "1+,2-,3+".
func ParseSteps(s string) ([]Step, error) {
	parts := strings.Split(s, ",")
	steps := make([]Step, 0, len(parts))
	for _, p := range parts {
		if len(p) < 2 {
			return nil, fmt.Errorf("bad step %q", p)
		}
		rev, err := parseOrient(p[len(p)-1:])
		if err != nil {
			return nil, err
		}
		id, err := parseID(p[:len(p)-1])
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{ID: id, Reverse: rev})
	}
	return steps, nil
}

// ParseWalk parses an oriented walk such as ">1<2>3". The same notation is
// used by GAF path columns.
func ParseWalk(s string) ([]Step, error) {
	if s == "" {
		return nil, fmt.Errorf("empty walk")
	}
	steps := make([]Step, 0, strings.Count(s, ">")+strings.Count(s, "<"))
	i := 0
	for i < len(s) {
		c := s[i]
		if c != '>' && c != '<' {
			return nil, fmt.Errorf("walk %q: expected '>' or '<' at %d", s, i)
		}
		j := i + 1
		for j < len(s) && s[j] != '>' && s[j] != '<' {
			j++
		}
		id, err := parseID(s[i+1 : j])
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{ID: id, Reverse: c == '<'})
		i = j
	}
	return steps, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("node id %q is not a positive integer", s)
	}
	return id, nil
}

func parseOrient(s string) (reverse bool, err error) {
	switch s {
	case "+":
		return false, nil
	case "-":
		return true, nil
	}
	return false, fmt.Errorf("bad orientation %q", s)
}
