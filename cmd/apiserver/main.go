// API server entry point for SessionSync.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/application/calendar"
	"github.com/turtacn/SessionSync/internal/application/scheduling"
	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/redis"
	"github.com/turtacn/SessionSync/internal/infrastructure/meetlink"
	"github.com/turtacn/SessionSync/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	grpcserver "github.com/turtacn/SessionSync/internal/interfaces/grpc"
	httpserver "github.com/turtacn/SessionSync/internal/interfaces/http"
	"github.com/turtacn/SessionSync/internal/interfaces/http/handlers"
	"github.com/turtacn/SessionSync/internal/interfaces/http/middleware"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

const eventSource = "sessionsync-apiserver"

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: ./config.yaml, then /etc/sessionsync/config.yaml)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.ToLogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")
	logger.Info("starting SessionSync API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate),
	)

	if *configPath != "" {
		watchLogLevel(*configPath, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("API server stopped")
}

func loadConfig(path, envFile string) (*config.Config, error) {
	opts := []config.LoadOption{config.WithEnvFile(envFile)}
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	} else {
		opts = append(opts, config.WithSearchPaths(".", "/etc/sessionsync"))
	}
	return config.Load(opts...)
}

// watchLogLevel applies log level changes from the config file without a
// restart.  Every other setting needs one.
func watchLogLevel(path string, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	err := config.Watch(path, func(c *config.Config) {
		setter.SetLevel(c.Log.Level)
		logger.Info("log level reloaded", logging.String("level", c.Log.Level))
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	// ── Metrics ──
	collector := prometheus.NewNopCollector()
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            "apiserver",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		collector = c
	}
	metrics := prometheus.NewAppMetrics(collector)

	// ── Storage ──
	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "postgres", conn.Close)

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database, logger); err != nil {
			return err
		}
	}

	checkers := []common.HealthChecker{conn}
	svcOpts := []scheduling.Option{scheduling.WithMetrics(metrics)}
	reconcilerOpts := []backfill.Option{backfill.WithMetrics(metrics)}
	var schedulerOpts []backfill.SchedulerOption

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer closeQuietly(logger, "redis", rc.Close)
		checkers = append(checkers, rc)
		schedulerOpts = append(schedulerOpts, backfill.WithReportCache(
			redis.NewRedisCache(rc, logger, redis.WithCacheName("backfill"), redis.WithCacheMetrics(metrics))))
	}

	// ── Messaging ──
	var requester handlers.BackfillRequester
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger, kafka.WithProducerMetrics(metrics))
		if err != nil {
			return err
		}
		defer closeQuietly(logger, "kafka producer", producer.Close)
		publisher := kafka.NewEventPublisher(producer, eventSource)
		svcOpts = append(svcOpts, scheduling.WithPublisher(publisher))
		reconcilerOpts = append(reconcilerOpts, backfill.WithPublisher(publisher))
		requester = &kafkaBackfillRequester{producer: producer, source: eventSource}
	}

	if cfg.MeetLink.Enabled {
		client, err := meetlink.NewClient(meetlink.Config{
			Endpoint:   cfg.MeetLink.Endpoint,
			Token:      cfg.MeetLink.Token,
			Timeout:    cfg.MeetLink.Timeout,
			MaxRetries: cfg.MeetLink.MaxRetries,
		}, logger, meetlink.WithMetrics(metrics))
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, scheduling.WithMeetLinkProvider(client))
	}

	// ── Application ──
	repo := repositories.NewPostgresAppointmentRepo(conn, logger, repositories.WithMetrics(metrics))
	converter := timezone.NewConverter(logger)
	links := calendar.NewLinkBuilder(cfg.Calendar.ToLinkConfig())
	svc := scheduling.NewService(repo, converter, links, logger, svcOpts...)

	// The worker owns the cron schedule; here the scheduler only serves
	// on-demand runs and the cached report.
	reconciler := backfill.NewReconciler(repo, converter, links, logger, reconcilerOpts...)
	scheduler, err := backfill.NewScheduler(reconciler, backfill.SchedulerConfig{
		Spec:      cfg.Backfill.Schedule,
		Timeout:   cfg.Backfill.Timeout,
		ReportTTL: cfg.Backfill.ReportTTL,
	}, logger, schedulerOpts...)
	if err != nil {
		return err
	}

	// ── Interfaces ──
	routerCfg := httpserver.RouterConfig{
		AppointmentHandler: handlers.NewAppointmentHandler(svc, logger),
		TimezoneHandler:    handlers.NewTimezoneHandler(svc, logger),
		StatusHandler:      handlers.NewStatusHandler(logger),
		BackfillHandler:    handlers.NewBackfillHandler(scheduler, requester, logger),
		HealthHandler:      handlers.NewHealthHandler(version, checkers...),
		LoggingConfig:      middleware.DefaultLoggingConfig(),
		CORSOrigins:        cfg.Server.CORSAllowedOrigins,
		Logger:             logger,
		Metrics:            metrics,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = collector.Handler()
	}

	httpSrv, err := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	if err != nil {
		return err
	}

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv, err = grpcserver.NewServer(cfg.GRPC,
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(metrics),
			grpcserver.WithHealthCheckers(checkers...),
			grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout),
		)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)
	if grpcSrv != nil {
		g.Go(func() error { return grpcSrv.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx := context.WithoutCancel(ctx)
		if grpcSrv != nil {
			if err := grpcSrv.Stop(shutdownCtx); err != nil {
				logger.Error("gRPC server shutdown error", logging.Err(err))
			}
		}
		return httpSrv.Stop(shutdownCtx)
	})
	return g.Wait()
}

func migrateUp(cfg config.DatabaseConfig, logger logging.Logger) error {
	m, err := postgres.NewMigrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "migrator", m.Close)
	return m.Up()
}

func closeQuietly(logger logging.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", logging.String("component", name), logging.Err(err))
	}
}

//Personal.AI order the ending
