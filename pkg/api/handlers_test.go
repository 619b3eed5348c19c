package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/query"
)

// mockQuerier implements query.Querier for testing.
type mockQuerier struct {
	anchors    []*anchor.Anchor
	err        error
	start, end int
}

func (m *mockQuerier) Sentinel(ctx context.Context, id int64) ([]*anchor.Anchor, error) {
	return m.anchors, m.err
}

func (m *mockQuerier) Region(ctx context.Context, start, end int) ([]*anchor.Anchor, error) {
	m.start, m.end = start, end
	return m.anchors, m.err
}

func testAnchor(t *testing.T) *anchor.Anchor {
	t.Helper()
	nodes, err := anchor.ParsePath(">1<2>4")
	if err != nil {
		t.Fatal(err)
	}
	nodes[0].Length, nodes[1].Length, nodes[2].Length = 20, 1, 20
	a := anchor.New(nodes, "1")
	a.GenomicPosition = 300
	a.AddReferencePath("CHM13")
	a.SetReads([]anchor.ReadMatch{
		{ReadID: "r1", RelativeStrand: true, Start: 10, End: 31, ReadLength: 100},
		{ReadID: "r2", RelativeStrand: false, Start: 50, End: 71, ReadLength: 100},
	})
	return a
}

func TestHandleSentinel_Success(t *testing.T) {
	h := NewHandlers(&mockQuerier{anchors: []*anchor.Anchor{testAnchor(t)}}, StatsResponse{})

	req := httptest.NewRequest("GET", "/api/v1/anchors/2?reads", nil)
	req.SetPathValue("sentinel", "2")
	w := httptest.NewRecorder()

	h.HandleSentinel(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); !strings.Contains(body, `">1<2>4"`) {
		t.Errorf("path escaped or missing: %s", body)
	}

	var resp AnchorsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Anchors) != 1 {
		t.Fatalf("Anchors length = %d, want 1", len(resp.Anchors))
	}
	got := resp.Anchors[0]
	if got.Sentinel != 2 || got.BpLength != 21 || got.GenomicPosition != 300 || got.NumReads != 2 {
		t.Errorf("anchor = %+v", got)
	}
	if len(got.Reads) != 2 || got.Reads[1].Strand != 1 || got.Reads[1].Start != 50 {
		t.Errorf("reads = %+v", got.Reads)
	}
}

func TestHandleSentinel_OmitsReads(t *testing.T) {
	h := NewHandlers(&mockQuerier{anchors: []*anchor.Anchor{testAnchor(t)}}, StatsResponse{})

	req := httptest.NewRequest("GET", "/api/v1/anchors/2", nil)
	req.SetPathValue("sentinel", "2")
	w := httptest.NewRecorder()

	h.HandleSentinel(w, req)

	if strings.Contains(w.Body.String(), `"reads"`) {
		t.Errorf("reads present without ?reads: %s", w.Body.String())
	}
}

func TestHandleSentinel_Errors(t *testing.T) {
	tests := []struct {
		name     string
		sentinel string
		err      error
		want     int
	}{
		{"not a number", "abc", nil, http.StatusBadRequest},
		{"zero", "0", nil, http.StatusBadRequest},
		{"not found", "7", query.ErrNotFound, http.StatusNotFound},
		{"timeout", "7", context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockQuerier{err: tt.err}, StatsResponse{})
			req := httptest.NewRequest("GET", "/api/v1/anchors/"+tt.sentinel, nil)
			req.SetPathValue("sentinel", tt.sentinel)
			w := httptest.NewRecorder()

			h.HandleSentinel(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleRegion(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"ok", "start=100&end=400", http.StatusOK},
		{"missing end", "start=100", http.StatusBadRequest},
		{"negative start", "start=-1&end=5", http.StatusBadRequest},
		{"reversed", "start=10&end=5", http.StatusBadRequest},
		{"too large", "start=0&end=20000000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockQuerier{anchors: []*anchor.Anchor{testAnchor(t)}}
			h := NewHandlers(mock, StatsResponse{})
			req := httptest.NewRequest("GET", "/api/v1/anchors?"+tt.query, nil)
			w := httptest.NewRecorder()

			h.HandleRegion(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d. body: %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && (mock.start != 100 || mock.end != 400) {
				t.Errorf("querier got [%d,%d], want [100,400]", mock.start, mock.end)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&mockQuerier{}, StatsResponse{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	stats := StatsResponse{GraphNodes: 500000, Sentinels: 1200, Anchors: 2400}
	h := NewHandlers(&mockQuerier{}, stats)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp != stats {
		t.Errorf("stats = %+v, want %+v", resp, stats)
	}
}

func TestServerRoutes(t *testing.T) {
	engine := query.NewEngine(anchor.FromAnchors([]*anchor.Anchor{testAnchor(t)}))
	cfg := config.Default().Server
	cfg.CORSOrigin = "https://example.org"
	srv := NewServer(cfg, NewHandlers(engine, StatsResponse{}))

	tests := []struct {
		method, target string
		want           int
	}{
		{"GET", "/api/v1/anchors/2", http.StatusOK},
		{"GET", "/api/v1/anchors/9", http.StatusNotFound},
		{"GET", "/api/v1/anchors?start=300&end=300", http.StatusOK},
		{"GET", "/api/v1/anchors?start=0&end=10", http.StatusNotFound},
		{"GET", "/api/v1/health", http.StatusOK},
		{"POST", "/api/v1/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, w.Code, tt.want)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); tt.want != http.StatusMethodNotAllowed && got != cfg.CORSOrigin {
			t.Errorf("%s %s: CORS header = %q", tt.method, tt.target, got)
		}
	}
}
