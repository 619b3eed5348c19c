package main

import (
	"flag"
	"os"
	"time"

	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/api"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/graph"
	"snarl_anchors/pkg/query"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to packed graph binary")
	dictPath := flag.String("dict", "final.dict", "Path to anchor dictionary")
	paramsPath := flag.String("config", "", "TOML parameter file with a [server] section")
	addr := flag.String("addr", "", "Listen address (overrides the parameter file)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	cfg := config.Default()
	if *paramsPath != "" {
		var err error
		if cfg, err = config.LoadFile(*paramsPath); err != nil {
			log.Fatalf("Failed to load parameters: %v", err)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *corsOrigin != "" {
		cfg.Server.CORSOrigin = *corsOrigin
	}

	start := time.Now()

	// Load graph.
	log.Printf("Loading graph from %s...", *graphPath)
	g, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d edges, %d snarls", g.NumNodes, g.NumEdges, len(g.Snarls))

	// Load dictionary; it must have been built from this graph.
	log.Printf("Loading dictionary from %s...", *dictPath)
	dict, err := anchor.ReadDictionaryFile(*dictPath, g.Fingerprint())
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}

	log.Printf("Building R-tree index over anchor positions...")
	engine := query.NewEngine(dict)
	qs := engine.Stats()
	log.Printf("Indexed %d anchors under %d sentinels, %d placed on the reference", qs.Anchors, qs.Sentinels, qs.Placed)

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	stats := api.StatsResponse{
		GraphNodes: int(g.NumNodes),
		GraphEdges: int(g.NumEdges),
		Snarls:     len(g.Snarls),
		Sentinels:  qs.Sentinels,
		Anchors:    qs.Anchors,
		Placed:     qs.Placed,
		Reads:      qs.Reads,
	}

	handlers := api.NewHandlers(engine, stats)
	srv := api.NewServer(cfg.Server, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
