package gfa

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Visit is an oriented boundary of a snarl, as printed by vg.
type Visit struct {
	NodeID   json.Number `json:"node_id"`
	Backward bool        `json:"backward,omitempty"`
}

// SnarlKey identifies a snarl by its two boundary visits.
type SnarlKey struct {
	Start Step
	End   Step
}

// SnarlRecord is one precomputed snarl. Parent is nil for top-level snarls.
type SnarlRecord struct {
	Key    SnarlKey
	Parent *SnarlKey
}

type jsonSnarl struct {
	Start  Visit `json:"start"`
	End    Visit `json:"end"`
	Parent *struct {
		Start Visit `json:"start"`
		End   Visit `json:"end"`
	} `json:"parent,omitempty"`
}

// ParseSnarls reads one JSON snarl per line (the output of
// `vg snarls graph.vg | vg view -R -`).
func ParseSnarls(r io.Reader) ([]SnarlRecord, error) {
	var out []SnarlRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var js jsonSnarl
		if err := json.Unmarshal([]byte(line), &js); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		key, err := makeKey(js.Start, js.End)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rec := SnarlRecord{Key: key}
		if js.Parent != nil {
			pk, err := makeKey(js.Parent.Start, js.Parent.End)
			if err != nil {
				return nil, fmt.Errorf("line %d parent: %w", lineNo, err)
			}
			rec.Parent = &pk
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}

func makeKey(start, end Visit) (SnarlKey, error) {
	s, err := visitStep(start)
	if err != nil {
		return SnarlKey{}, err
	}
	e, err := visitStep(end)
	if err != nil {
		return SnarlKey{}, err
	}
	return SnarlKey{Start: s, End: e}, nil
}

func visitStep(v Visit) (Step, error) {
	id, err := strconv.ParseInt(v.NodeID.String(), 10, 64)
	if err != nil || id <= 0 {
		return Step{}, fmt.Errorf("bad node_id %q", v.NodeID)
	}
	return Step{ID: id, Reverse: v.Backward}, nil
}
