package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics over HTTP for embedding applications that do not
// already run a Prometheus endpoint.
type Server struct {
	srv      *http.Server
	serveErr chan error
}

// NewServer creates a metrics server for addr, e.g. ":9090". Nothing is
// bound until Start.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		serveErr: make(chan error, 1),
	}
}

// Start binds the listener and begins serving in the background. Bind
// failures are returned directly; failures after a successful bind surface
// through Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.serveErr <- err
		}
	}()
	return nil
}

// Err reports a serve failure without blocking, or nil if the server is
// healthy so far.
func (s *Server) Err() error {
	select {
	case err := <-s.serveErr:
		return err
	default:
		return nil
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
