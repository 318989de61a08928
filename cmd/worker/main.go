// Background worker entry point for SessionSync.  It runs the scheduled
// calendar-link backfill and executes backfill commands from Kafka.
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
	"github.com/turtacn/SessionSync/internal/config"
	"github.com/turtacn/SessionSync/internal/domain/timezone"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/SessionSync/internal/infrastructure/database/redis"
	"github.com/turtacn/SessionSync/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/SessionSync/internal/interfaces/http"
	"github.com/turtacn/SessionSync/internal/interfaces/http/handlers"
	"github.com/turtacn/SessionSync/pkg/types/common"
)

const (
	eventSource       = "sessionsync-worker"
	defaultHealthPort = 8081
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: ./config.yaml, then /etc/sessionsync/config.yaml)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment")
	runOnce := flag.Bool("once", false, "run a single backfill pass and exit")
	flag.Parse()

	opts := []config.LoadOption{config.WithEnvFile(*envFile)}
	if *configPath != "" {
		opts = append(opts, config.WithConfigPath(*configPath))
	} else {
		opts = append(opts, config.WithSearchPaths(".", "/etc/sessionsync"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.ToLogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")
	logger.Info("starting SessionSync worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate),
		logging.Bool("once", *runOnce),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := newWorker(cfg, logger)
	if err != nil {
		logger.Error("worker initialization failed", logging.Err(err))
		os.Exit(1)
	}
	defer w.Close()

	if *runOnce {
		err = w.runOnce(ctx)
	} else {
		err = w.serve(ctx)
	}
	if err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

type worker struct {
	cfg       *config.Config
	logger    logging.Logger
	collector prometheus.MetricsCollector
	metrics   *prometheus.AppMetrics
	checkers  []common.HealthChecker
	scheduler *backfill.Scheduler
	producer  *kafka.Producer
	closers   []func()
}

func newWorker(cfg *config.Config, logger logging.Logger) (_ *worker, err error) {
	w := &worker{cfg: cfg, logger: logger, collector: prometheus.NewNopCollector()}
	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            "worker",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, err
		}
		w.collector = c
	}
	w.metrics = prometheus.NewAppMetrics(w.collector)

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	w.onClose("postgres", conn.Close)
	w.checkers = append(w.checkers, conn)

	reconcilerOpts := []backfill.Option{backfill.WithMetrics(w.metrics)}
	var schedulerOpts []backfill.SchedulerOption

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		w.onClose("redis", rc.Close)
		w.checkers = append(w.checkers, rc)

		lease := redis.NewLockFactory(rc, logger).NewMutex(cfg.Backfill.LeaseName,
			redis.WithLockTTL(cfg.Backfill.LeaseTTL),
			redis.WithWatchdog(true),
		)
		cache := redis.NewRedisCache(rc, logger, redis.WithCacheName("backfill"), redis.WithCacheMetrics(w.metrics))
		schedulerOpts = append(schedulerOpts, backfill.WithLease(lease), backfill.WithReportCache(cache))
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger, kafka.WithProducerMetrics(w.metrics))
		if err != nil {
			return nil, err
		}
		w.onClose("kafka producer", producer.Close)
		w.producer = producer
		reconcilerOpts = append(reconcilerOpts, backfill.WithPublisher(kafka.NewEventPublisher(producer, eventSource)))
	}

	repo := repositories.NewPostgresAppointmentRepo(conn, logger, repositories.WithMetrics(w.metrics))
	reconciler := backfill.NewReconciler(repo,
		timezone.NewConverter(logger),
		calendar.NewLinkBuilder(cfg.Calendar.ToLinkConfig()),
		logger, reconcilerOpts...)

	w.scheduler, err = backfill.NewScheduler(reconciler, backfill.SchedulerConfig{
		Spec:      cfg.Backfill.Schedule,
		Timeout:   cfg.Backfill.Timeout,
		ReportTTL: cfg.Backfill.ReportTTL,
	}, logger, schedulerOpts...)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *worker) onClose(name string, closeFn func() error) {
	w.closers = append(w.closers, func() {
		if err := closeFn(); err != nil {
			w.logger.Warn("close failed", logging.String("component", name), logging.Err(err))
		}
	})
}

// Close releases resources in reverse order of acquisition.
func (w *worker) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
	w.closers = nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Run modes
// ─────────────────────────────────────────────────────────────────────────────

func (w *worker) runOnce(ctx context.Context) error {
	report, err := w.scheduler.RunNow(ctx, backfill.TriggerManual)
	if report != nil {
		w.logger.Info("backfill pass finished",
			logging.Int("scanned", report.Scanned),
			logging.Int("fixed", report.Fixed),
			logging.Int("failed", len(report.Failures)),
			logging.Duration("duration", report.Duration()))
	}
	return err
}

func (w *worker) serve(ctx context.Context) error {
	if w.cfg.Backfill.Enabled {
		w.scheduler.Start()
		defer func() {
			if err := w.scheduler.Stop(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("backfill schedule did not stop cleanly", logging.Err(err))
			}
		}()
	} else {
		w.logger.Info("scheduled backfill disabled")
	}

	if w.cfg.Kafka.Enabled {
		consumerOpts := []kafka.ConsumerOption{kafka.WithConsumerMetrics(w.metrics)}
		if w.producer != nil {
			consumerOpts = append(consumerOpts, kafka.WithDeadLetterProducer(w.producer))
		}
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(w.cfg.Kafka, kafka.TopicBackfillRequested), w.logger, consumerOpts...)
		if err != nil {
			return err
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				w.logger.Warn("kafka consumer close failed", logging.Err(err))
			}
		}()
		consumer.Subscribe(kafka.TopicBackfillRequested, kafka.NewBackfillCommandHandler(w.scheduler, w.logger))
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	port := w.cfg.Metrics.Port
	if port == 0 {
		port = defaultHealthPort
	}
	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, w.checkers...),
		Logger:        w.logger,
		Metrics:       w.metrics,
	}
	if w.cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = w.collector.Handler()
	}
	probeSrv, err := httpserver.NewServer(config.ServerConfig{
		Host:            w.cfg.Server.Host,
		Port:            port,
		ReadTimeout:     w.cfg.Server.ReadTimeout,
		WriteTimeout:    w.cfg.Server.WriteTimeout,
		ShutdownTimeout: w.cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(routerCfg), w.logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(probeSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return probeSrv.Stop(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

//Personal.AI order the ending
