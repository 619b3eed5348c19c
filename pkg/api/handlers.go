package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/query"
)

// maxRegion bounds the reference interval of a single region query.
const maxRegion = 10_000_000

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	querier query.Querier
	stats   StatsResponse
}

// NewHandlers creates handlers with the given querier.
func NewHandlers(querier query.Querier, stats StatsResponse) *Handlers {
	return &Handlers{
		querier: querier,
		stats:   stats,
	}
}

// HandleSentinel handles GET /api/v1/anchors/{sentinel}.
func (h *Handlers) HandleSentinel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("sentinel"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_sentinel", "sentinel")
		return
	}
	list, err := h.querier.Sentinel(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(list, r.URL.Query().Has("reads")))
}

// HandleRegion handles GET /api/v1/anchors?start=&end=.
func (h *Handlers) HandleRegion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := strconv.Atoi(q.Get("start"))
	if err != nil || start < 0 {
		writeError(w, http.StatusBadRequest, "invalid_range", "start")
		return
	}
	end, err := strconv.Atoi(q.Get("end"))
	if err != nil || end < start {
		writeError(w, http.StatusBadRequest, "invalid_range", "end")
		return
	}
	if end-start > maxRegion {
		writeError(w, http.StatusBadRequest, "range_too_large", "end")
		return
	}
	list, err := h.querier.Region(r.Context(), start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(list, q.Has("reads")))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

func toResponse(list []*anchor.Anchor, withReads bool) AnchorsResponse {
	resp := AnchorsResponse{Anchors: make([]AnchorJSON, 0, len(list))}
	for _, a := range list {
		aj := AnchorJSON{
			Path:            a.String(),
			Sentinel:        a.Sentinel(),
			SnarlID:         a.SnarlID,
			BpLength:        a.BpLength,
			GenomicPosition: a.GenomicPosition,
			ReferencePaths:  a.ReferencePaths,
			NumReads:        a.NumSequences(),
		}
		if aj.ReferencePaths == nil {
			aj.ReferencePaths = []string{}
		}
		if withReads {
			for _, m := range a.Reads {
				strand := 0
				if !m.RelativeStrand {
					strand = 1
				}
				aj.Reads = append(aj.Reads, ReadJSON{ReadID: m.ReadID, Strand: strand, Start: m.Start, End: m.End})
			}
		}
		resp.Anchors = append(resp.Anchors, aj)
	}
	return resp
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "anchor_not_found", "")
	case errors.Is(err, query.ErrBadRange):
		writeError(w, http.StatusBadRequest, "invalid_range", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// writeJSON leaves '<' and '>' unescaped so paths read as ">1<2>3".
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
