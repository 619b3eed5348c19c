package extend

import (
	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
)

// Audit tracks read coverage of anchors across extension and merging.
// Anchors are keyed by their path string at the time of recording, so an
// extended anchor appears under its old path in the initial maps and its
// new path in the final one.
type Audit struct {
	InitialCoverage map[string]int      `json:"initial_coverage"`
	FinalCoverage   map[string]int      `json:"final_coverage"`
	AnchorReads     map[string][]string `json:"anchor_reads"`
	DroppedReads    map[string][]string `json:"dropped_reads"`
}

// NewAudit returns an empty audit.
func NewAudit() *Audit {
	return &Audit{
		InitialCoverage: make(map[string]int),
		FinalCoverage:   make(map[string]int),
		AnchorReads:     make(map[string][]string),
		DroppedReads:    make(map[string][]string),
	}
}

func (au *Audit) recordInitial(a *anchor.Anchor) {
	key := a.String()
	au.InitialCoverage[key] += len(a.Reads)
	for _, r := range a.Reads {
		au.AnchorReads[key] = append(au.AnchorReads[key], r.ReadID)
	}
}

func (au *Audit) recordFinal(a *anchor.Anchor) {
	au.FinalCoverage[a.String()] += len(a.Reads)
}

func (au *Audit) drop(a *anchor.Anchor, readID, reason string) {
	key := a.String()
	au.DroppedReads[key] = append(au.DroppedReads[key], readID)
	log.Error.Printf("extend: %s dropped read %s from %s", reason, readID, key)
}

// Dropped returns the number of dropped reads.
func (au *Audit) Dropped() int {
	n := 0
	for _, ids := range au.DroppedReads {
		n += len(ids)
	}
	return n
}
