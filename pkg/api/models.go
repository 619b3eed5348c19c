package api

// AnchorJSON is one anchor in a response.
type AnchorJSON struct {
	Path            string     `json:"path"`
	Sentinel        int64      `json:"sentinel"`
	SnarlID         string     `json:"snarl_id"`
	BpLength        int        `json:"bp_length"`
	GenomicPosition int        `json:"genomic_position"`
	ReferencePaths  []string   `json:"reference_paths"`
	NumReads        int        `json:"num_reads"`
	Reads           []ReadJSON `json:"reads,omitempty"`
}

// ReadJSON is one read assignment of an anchor.
type ReadJSON struct {
	ReadID string `json:"read_id"`
	Strand int    `json:"strand"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// AnchorsResponse is the JSON response for anchor lookups.
type AnchorsResponse struct {
	Anchors []AnchorJSON `json:"anchors"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	GraphNodes int `json:"graph_nodes"`
	GraphEdges int `json:"graph_edges"`
	Snarls     int `json:"snarls"`
	Sentinels  int `json:"sentinels"`
	Anchors    int `json:"anchors"`
	Placed     int `json:"placed"`
	Reads      int `json:"reads"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
