package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

const defaultShutdownTimeout = 30 * time.Second

// Server owns the listener and the http.Server of the API.
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   logging.Logger
	timeout  time.Duration
}

// NewServer binds host:port and prepares the server.  Port 0 picks a free
// port, which Addr reports.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to listen on "+addr)
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		listener: lis,
		logger:   logger.Named("http"),
		timeout:  timeout,
	}, nil
}

// Start serves until Stop.  It blocks and returns nil after a clean stop.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.String("address", s.Addr()))
	if err := s.srv.Serve(s.listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, errors.ErrCodeInternal, "http server failed")
	}
	return nil
}

// Stop drains in-flight requests, bounded by the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "server shutdown failed")
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the actual listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

//Personal.AI order the ending
