package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// LastReportKey is the cache key of the most recent report.
const LastReportKey = "backfill:last_report"

// Runner performs one reconciliation pass.  *Reconciler implements it.
type Runner interface {
	Run(ctx context.Context, trigger string) (*Report, error)
}

// Lease keeps replicas from running the same scheduled tick.  The Redis
// mutex from the database/redis package satisfies it.
type Lease interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// ReportCache stores the last report.  The Redis cache satisfies it.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SchedulerConfig tunes the scheduled runs.
type SchedulerConfig struct {
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@every 15m".
	Spec string
	// Timeout bounds a single run.
	Timeout time.Duration
	// ReportTTL is how long the last report stays cached.
	ReportTTL time.Duration
}

// Scheduler runs the Reconciler on a cron schedule and on demand, caching the
// last report.
type Scheduler struct {
	runner Runner
	cfg    SchedulerConfig
	lease  Lease
	cache  ReportCache
	logger logging.Logger
	cron   *cron.Cron

	// runCtx parents every scheduled tick; Stop cancels it.
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLease gates scheduled ticks on l.
func WithLease(l Lease) SchedulerOption {
	return func(s *Scheduler) { s.lease = l }
}

// WithReportCache caches every finished report in c.
func WithReportCache(c ReportCache) SchedulerOption {
	return func(s *Scheduler) { s.cache = c }
}

// NewScheduler validates cfg.Spec and registers the tick.  The schedule does
// not fire until Start.
func NewScheduler(runner Runner, cfg SchedulerConfig, logger logging.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 15m"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = 24 * time.Hour
	}

	s := &Scheduler{runner: runner, cfg: cfg, logger: logger.Named("backfill.scheduler")}
	s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(cfg.Spec, func() { s.Tick(s.runCtx) }); err != nil {
		s.cancelRun()
		return nil, errors.Validation(fmt.Sprintf("invalid backfill schedule %q", cfg.Spec)).WithCause(err)
	}
	return s, nil
}

// Start begins firing the schedule in a background goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("backfill schedule started", logging.String("spec", s.cfg.Spec))
	s.cron.Start()
}

// Stop halts the schedule, cancels a running tick so it issues no further
// writes, and waits for it to return, or for ctx.  A Scheduler cannot be
// restarted after Stop.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancelRun()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick is one scheduled run.  It is skipped when another replica holds the
// lease; a lease error is logged and the run proceeds without it.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.lease != nil {
		ok, err := s.lease.TryLock(ctx)
		switch {
		case err != nil:
			s.logger.Warn("backfill lease unavailable, running without it", logging.Err(err))
		case !ok:
			s.logger.Debug("backfill lease held elsewhere, skipping tick")
			return
		default:
			defer func() {
				if err := s.lease.Unlock(context.Background()); err != nil {
					s.logger.Warn("backfill lease release failed", logging.Err(err))
				}
			}()
		}
	}
	_, _ = s.RunNow(ctx, TriggerSchedule)
}

// RunNow runs a pass immediately, bounded by the configured timeout, and
// caches the report.  A partial report from a canceled run is cached too.
func (s *Scheduler) RunNow(ctx context.Context, trigger string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	report, err := s.runner.Run(ctx, trigger)
	if report != nil && s.cache != nil {
		if cerr := s.cache.Set(context.WithoutCancel(ctx), LastReportKey, report, s.cfg.ReportTTL); cerr != nil {
			s.logger.Warn("backfill report not cached", logging.Err(cerr))
		}
	}
	if err != nil {
		s.logger.Error("backfill run failed", logging.String("trigger", trigger), logging.Err(err))
	}
	return report, err
}

// LastReport returns the cached report of the most recent run.
func (s *Scheduler) LastReport(ctx context.Context) (*Report, error) {
	if s.cache == nil {
		return nil, errors.NotFound("no backfill report cache configured")
	}
	var report Report
	if err := s.cache.Get(ctx, LastReportKey, &report); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("no backfill report recorded yet")
		}
		return nil, err
	}
	return &report, nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct{ l logging.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logging.Err(err))...)
}

func kvFields(kv []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}

//Personal.AI order the ending
