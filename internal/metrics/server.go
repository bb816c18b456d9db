package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chunkcast/chunkcast/internal/logging"
)

// Server exposes /metrics over HTTP, started and stopped the way the
// teacher's httpserver.Server implementations are: asynchronously, with
// an explicit Shutdown.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics server bound to addr (e.g. ":9120"),
// serving the given registry's collectors at /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins serving in a background goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server stopped unexpectedly", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics: shutdown failed: %w", err)
	}
	return nil
}
