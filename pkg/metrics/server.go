package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Server exposes /metrics on a listener separate from the API so scrapes
// bypass the API middleware chain.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// Listen binds the metrics port and starts serving g in the background. A
// port that cannot be bound is reported here rather than from the serve
// goroutine. Port 0 picks a free port; see Addr.
func Listen(port int, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding metrics port %d: %w", port, err)
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln:     ln,
		logger: slog.Default().With("component", "metrics-server"),
	}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	s.logger.Info("metrics server listening", "addr", s.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("metrics server stopped", "error", err)
	}
}

// Addr is the bound address, useful when Listen was given port 0.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
