package api

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/grailbio/base/log"

	"snarl_anchors/pkg/config"
)

// shutdownGrace bounds how long in-flight requests may finish after a
// shutdown signal.
const shutdownGrace = 10 * time.Second

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg config.Server, handlers *Handlers) *http.Server {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /api/v1/anchors/{sentinel}", handlers.HandleSentinel},
		{"GET /api/v1/anchors", handlers.HandleRegion},
		{"GET /api/v1/health", handlers.HandleHealth},
		{"GET /api/v1/stats", handlers.HandleStats},
	}

	mw := &middleware{
		sem:     make(chan struct{}, max(cfg.MaxConcurrent, 1)),
		cors:    cfg.CORSOrigin,
		timeout: cfg.QueryTimeout,
	}
	if mw.timeout <= 0 {
		mw.timeout = 5 * time.Second
	}
	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, mw.wrap(rt.handler))
	}

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until it fails or a SIGTERM
// or SIGINT arrives, then drains in-flight requests.
func ListenAndServe(srv *http.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("Shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// middleware applies the headers, concurrency limit, recovery, timeout
// and request log shared by every route.
type middleware struct {
	sem     chan struct{}
	cors    string
	timeout time.Duration
}

func (m *middleware) wrap(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		if m.cors != "" {
			h.Set("Access-Control-Allow-Origin", m.cors)
		}

		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		default:
			h.Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				log.Error.Printf("panic serving %s: %v", r.URL.Path, p)
				if !rec.wrote {
					writeError(w, http.StatusInternalServerError, "internal_error", "")
				}
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
		defer cancel()

		start := time.Now()
		handler(rec, r.WithContext(ctx))
		log.Debug.Printf("%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Microsecond))
	}
}

// statusRecorder remembers the status code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status, r.wrote = code, true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}
