// Package stubserver is a fake storefront backend used by the demo and the
// integration tests. It mimics the wire contract the sync engines consume:
// guest callers get echo responses with isGuest set, authenticated callers
// get the full authoritative state.
package stubserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"storefront-state/internal/domain"
)

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server serving the fake storefront API over the given catalog.
func New(addr string, logger *log.Logger, catalog []domain.ProductSnapshot) *Server {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, catalog),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: httpSrv, logger: logger}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
