// Package grpc serves the standard grpc.health.v1 service on its own port.
// Serving status follows the readiness checkers, so a gRPC-aware load
// balancer drains the instance when Postgres or Redis goes away.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SessionSync/pkg/errors"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

const (
	defaultGracefulTimeout = 10 * time.Second
	defaultProbeInterval   = 10 * time.Second
	defaultProbeTimeout    = 5 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

var defaultKeepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Option configures the gRPC Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger          logging.Logger
	metrics         *prometheus.AppMetrics
	checkers        []common.HealthChecker
	probeInterval   time.Duration
	keepaliveParams keepalive.ServerParameters
	gracefulTimeout time.Duration
}

func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics exports each component's probe result as a gauge.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithHealthCheckers sets the components that drive the serving status.
func WithHealthCheckers(checkers ...common.HealthChecker) Option {
	return func(o *serverOptions) { o.checkers = append(o.checkers, checkers...) }
}

// WithProbeInterval sets how often the checkers run while serving.
func WithProbeInterval(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.probeInterval = d
		}
	}
}

func WithGracefulTimeout(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// Server wraps a gRPC server with lifecycle management and health probing.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	opts         *serverOptions
	healthServer *health.Server

	mu        sync.Mutex
	started   bool
	stopProbe context.CancelFunc
	probeDone chan struct{}
}

// NewServer binds the listener and registers the health service, plus
// reflection when cfg.Reflection is set.  Port 0 picks a free port.
func NewServer(cfg config.GRPCConfig, opts ...Option) (*Server, error) {
	sopts := &serverOptions{
		probeInterval:   defaultProbeInterval,
		keepaliveParams: defaultKeepaliveParams,
		gracefulTimeout: defaultGracefulTimeout,
	}
	for _, o := range opts {
		o(sopts)
	}
	if sopts.logger == nil {
		sopts.logger = logging.NewNopLogger()
	}
	sopts.logger = sopts.logger.Named("grpc")

	addr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to listen on "+addr)
	}

	gs := grpc.NewServer(
		grpc.KeepaliveParams(sopts.keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(defaultKeepalivePolicy),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(sopts.logger),
			loggingUnaryInterceptor(sopts.logger),
		),
		grpc.ChainStreamInterceptor(
			recoveryStreamInterceptor(sopts.logger),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	// NOT_SERVING until the first probe passes.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	if cfg.Reflection {
		reflection.Register(gs)
		sopts.logger.Info("grpc reflection service registered")
	}

	return &Server{
		grpcServer:   gs,
		listener:     lis,
		opts:         sopts,
		healthServer: hs,
	}, nil
}

// Start probes once, then serves until Stop.  It blocks.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeConflict, "grpc server already started")
	}
	s.started = true
	probeCtx, cancel := context.WithCancel(ctx)
	s.stopProbe = cancel
	s.probeDone = make(chan struct{})
	s.mu.Unlock()

	s.Refresh(probeCtx)
	go s.probeLoop(probeCtx)

	s.opts.logger.Info("grpc server starting", logging.String("address", s.Addr()))
	if err := s.grpcServer.Serve(s.listener); err != nil && err != grpc.ErrServerStopped {
		return errors.Wrap(err, errors.ErrCodeInternal, "grpc server failed")
	}
	return nil
}

func (s *Server) probeLoop(ctx context.Context) {
	defer close(s.probeDone)
	ticker := time.NewTicker(s.opts.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh runs every checker once and updates the serving status: the
// overall service ("") and one entry per component name.
func (s *Server) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	results := common.CheckAll(ctx, s.opts.checkers...)
	for _, r := range results {
		s.healthServer.SetServingStatus(r.Name, servingStatus(r.Healthy()))
		prometheus.SetHealthStatus(s.opts.metrics, r.Name, r.Healthy())
		if !r.Healthy() {
			s.opts.logger.Warn("health probe failed",
				logging.String("component", r.Name),
				logging.String("error", r.Message))
		}
	}
	s.healthServer.SetServingStatus("", servingStatus(common.AllHealthy(results)))
}

func servingStatus(up bool) healthpb.HealthCheckResponse_ServingStatus {
	if up {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Stop marks the service NOT_SERVING, then stops gracefully.  When ctx or
// the graceful timeout expires first it forces the stop.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.stopProbe, s.probeDone
	s.mu.Unlock()

	s.opts.logger.Info("grpc server stopping")
	cancel()
	<-done
	s.healthServer.Shutdown()

	gracefulCtx, stop := context.WithTimeout(ctx, s.opts.gracefulTimeout)
	defer stop()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.opts.logger.Info("grpc server stopped gracefully")
	case <-gracefulCtx.Done():
		s.opts.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// Addr returns the actual listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// ---------------------------------------------------------------------------
// Interceptors
// ---------------------------------------------------------------------------

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
					logging.String("stack", string(debug.Stack())),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func recoveryStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc stream panic recovered",
					logging.String("method", info.FullMethod),
					logging.String("panic", fmt.Sprintf("%v", r)),
				)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}

func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

// loggingUnaryInterceptor logs every call except health checks.
func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			logging.String("method", info.FullMethod),
			logging.Duration("duration", time.Since(start)),
			logging.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

//Personal.AI order the ending
