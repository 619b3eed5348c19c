// Package gaf reads graph alignments in GAF format, keeping the fields the
// matcher needs: the oriented node path, the alignment span on that path
// and the cs difference string as CIGAR operations.
package gaf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"

	"snarl_anchors/pkg/gfa"
)

// ErrSkipped marks a well-formed line that is filtered out: low mapping
// quality or a missing or too short cs tag.
var ErrSkipped = errors.New("alignment skipped")

// GAF columns.
const (
	colReadName = iota
	colReadLen
	colReadStart
	colReadEnd
	colStrand
	colPath
	colPathLen
	colPathStart
	colPathEnd
	colMatches
	colBlockLen
	colMapQ
	minColumns
)

const csPrefix = "cs:Z:"

// Alignment is one aligned read.
type Alignment struct {
	ReadID     string
	ReadLength int
	ReadStart  int
	ReadEnd    int
	// Reverse is set when the read aligns as its reverse complement
	// (strand column "-").
	Reverse bool
	// RelativeStrand is true when most path steps are forward.
	RelativeStrand bool
	PathLength     int
	PathStart      int
	PathEnd        int
	Nodes          []int64
	Orientations   []bool // true for forward steps
	Ops            []sam.CigarOp
	MapQ           int
}

// Filter selects usable alignments.
type Filter struct {
	MinMapQ     int
	MinCsLength int // minimum length of the whole cs tag, prefix included
}

// ParseLine parses one tab or space separated GAF line. Lines rejected by
// f return an error wrapping ErrSkipped.
func ParseLine(line string, f Filter) (*Alignment, error) {
	fields := strings.Fields(line)
	// Some aligners emit a two-column read annotation after the name.
	if len(fields) > 3 && !isNumeric(fields[colReadLen]) {
		fields = append(fields[:1], fields[3:]...)
	}
	if len(fields) < minColumns {
		return nil, fmt.Errorf("GAF line has %d columns, want at least %d", len(fields), minColumns)
	}

	aln := &Alignment{ReadID: fields[colReadName]}
	ints := []struct {
		col int
		dst *int
	}{
		{colReadLen, &aln.ReadLength},
		{colReadStart, &aln.ReadStart},
		{colReadEnd, &aln.ReadEnd},
		{colPathLen, &aln.PathLength},
		{colPathStart, &aln.PathStart},
		{colPathEnd, &aln.PathEnd},
		{colMapQ, &aln.MapQ},
	}
	for _, c := range ints {
		n, err := strconv.Atoi(fields[c.col])
		if err != nil {
			return nil, fmt.Errorf("read %s column %d: %w", aln.ReadID, c.col+1, err)
		}
		*c.dst = n
	}
	if aln.MapQ < f.MinMapQ {
		return nil, fmt.Errorf("read %s mapq %d: %w", aln.ReadID, aln.MapQ, ErrSkipped)
	}
	switch fields[colStrand] {
	case "+":
	case "-":
		aln.Reverse = true
	default:
		return nil, fmt.Errorf("read %s: bad strand %q", aln.ReadID, fields[colStrand])
	}

	steps, err := gfa.ParseWalk(fields[colPath])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", aln.ReadID, err)
	}
	aln.Nodes = make([]int64, len(steps))
	aln.Orientations = make([]bool, len(steps))
	forward := 0
	for i, s := range steps {
		aln.Nodes[i] = s.ID
		aln.Orientations[i] = !s.Reverse
		if !s.Reverse {
			forward++
		}
	}
	aln.RelativeStrand = 2*forward > len(steps)

	var cs string
	for _, tag := range fields[minColumns:] {
		if strings.HasPrefix(tag, csPrefix) {
			cs = tag
			break
		}
	}
	if len(cs) <= f.MinCsLength || len(cs) == len(csPrefix) {
		return nil, fmt.Errorf("read %s has no usable cs tag: %w", aln.ReadID, ErrSkipped)
	}
	aln.Ops, err = ParseCS(cs[len(csPrefix):])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", aln.ReadID, err)
	}
	return aln, nil
}

// ParseCS converts a cs difference string (without the "cs:Z:" prefix)
// into CIGAR operations: ":n" and "=seq" are matches, "*xy" a single base
// substitution, "+seq" an insertion and "-seq" a deletion.
func ParseCS(cs string) ([]sam.CigarOp, error) {
	var ops []sam.CigarOp
	for i := 0; i < len(cs); {
		op := cs[i]
		j := i + 1
		for j < len(cs) && !isCsOperator(cs[j]) {
			j++
		}
		arg := cs[i+1 : j]
		switch op {
		case ':':
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("cs: bad match length %q", arg)
			}
			ops = append(ops, sam.NewCigarOp(sam.CigarEqual, n))
		case '=':
			ops = append(ops, sam.NewCigarOp(sam.CigarEqual, len(arg)))
		case '*':
			if len(arg) != 2 {
				return nil, fmt.Errorf("cs: bad substitution %q", arg)
			}
			ops = append(ops, sam.NewCigarOp(sam.CigarMismatch, 1))
		case '+':
			ops = append(ops, sam.NewCigarOp(sam.CigarInsertion, len(arg)))
		case '-':
			ops = append(ops, sam.NewCigarOp(sam.CigarDeletion, len(arg)))
		default:
			return nil, fmt.Errorf("cs: unsupported operator %q at %d", op, i)
		}
		if op != ':' && op != '*' && len(arg) == 0 {
			return nil, fmt.Errorf("cs: empty operand for %q at %d", op, i)
		}
		i = j
	}
	return ops, nil
}

func isCsOperator(c byte) bool {
	switch c {
	case ':', '=', '*', '+', '-', '~':
		return true
	}
	return false
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
