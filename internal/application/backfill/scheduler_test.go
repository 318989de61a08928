package backfill

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/pkg/errors"
)

type stubRunner struct {
	mu       sync.Mutex
	calls    []string
	report   *Report
	err      error
	deadline bool
}

func (s *stubRunner) Run(ctx context.Context, trigger string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, trigger)
	_, s.deadline = ctx.Deadline()
	if s.report == nil {
		return nil, s.err
	}
	cp := *s.report
	cp.Trigger = trigger
	return &cp, s.err
}

type stubLease struct {
	acquired bool
	err      error
	unlocked int
}

func (l *stubLease) TryLock(context.Context) (bool, error) { return l.acquired, l.err }
func (l *stubLease) Unlock(context.Context) error {
	l.unlocked++
	return nil
}

// jsonCache round-trips values through JSON like the Redis cache does.
type jsonCache struct {
	data map[string][]byte
	ttl  time.Duration
}

func newJSONCache() *jsonCache { return &jsonCache{data: map[string][]byte{}} }

func (c *jsonCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return errors.NotFound("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *jsonCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttl = ttl
	return nil
}

func sampleReport() *Report {
	return &Report{
		Scanned:    10,
		Eligible:   3,
		Fixed:      2,
		Failures:   []Failure{{ID: "missing-2", Err: errors.Persistence(stderrors.New("boom"), "update calendar link")}},
		StartedAt:  fixedNow,
		FinishedAt: fixedNow.Add(time.Second),
	}
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler(&stubRunner{}, SchedulerConfig{Spec: "every now and then"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestNewScheduler_AcceptsDescriptorsAndCron(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"", "@every 15m", "@hourly", "*/5 * * * *"} {
		_, err := NewScheduler(&stubRunner{}, SchedulerConfig{Spec: spec}, nil)
		assert.NoError(t, err, spec)
	}
}

func TestScheduler_TickSkipsWhenLeaseHeld(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{report: sampleReport()}
	lease := &stubLease{acquired: false}
	s, err := NewScheduler(runner, SchedulerConfig{}, nil, WithLease(lease))
	require.NoError(t, err)

	s.Tick(context.Background())

	assert.Empty(t, runner.calls)
	assert.Zero(t, lease.unlocked)
}

func TestScheduler_TickRunsUnderLease(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{report: sampleReport()}
	lease := &stubLease{acquired: true}
	s, err := NewScheduler(runner, SchedulerConfig{}, nil, WithLease(lease))
	require.NoError(t, err)

	s.Tick(context.Background())

	assert.Equal(t, []string{TriggerSchedule}, runner.calls)
	assert.True(t, runner.deadline, "scheduled runs are bounded by the timeout")
	assert.Equal(t, 1, lease.unlocked)
}

func TestScheduler_TickRunsWhenLeaseErrors(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{report: sampleReport()}
	log := testutil.NewMockLogger()
	s, err := NewScheduler(runner, SchedulerConfig{}, log, WithLease(&stubLease{err: stderrors.New("redis down")}))
	require.NoError(t, err)

	s.Tick(context.Background())

	assert.Len(t, runner.calls, 1)
	assert.True(t, log.HasMessage("warn", "backfill lease unavailable, running without it"))
}

func TestScheduler_RunNowCachesReport(t *testing.T) {
	t.Parallel()

	cache := newJSONCache()
	s, err := NewScheduler(&stubRunner{report: sampleReport()}, SchedulerConfig{ReportTTL: time.Hour}, nil, WithReportCache(cache))
	require.NoError(t, err)

	report, err := s.RunNow(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, report.Trigger)
	assert.Equal(t, time.Hour, cache.ttl)

	last, err := s.LastReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, last.Fixed)
	assert.Equal(t, TriggerManual, last.Trigger)
	require.Len(t, last.Failures, 1)
	assert.True(t, errors.IsPersistence(last.Failures[0].Err))
}

func TestScheduler_RunNowCachesPartialReportOnError(t *testing.T) {
	t.Parallel()

	cache := newJSONCache()
	runner := &stubRunner{report: sampleReport(), err: context.Canceled}
	s, err := NewScheduler(runner, SchedulerConfig{}, nil, WithReportCache(cache))
	require.NoError(t, err)

	report, err := s.RunNow(context.Background(), TriggerCommand)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, report)
	assert.Contains(t, cache.data, LastReportKey)
}

func TestScheduler_LastReportMiss(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(&stubRunner{}, SchedulerConfig{}, nil, WithReportCache(newJSONCache()))
	require.NoError(t, err)
	_, err = s.LastReport(context.Background())
	assert.True(t, errors.IsNotFound(err))

	bare, err := NewScheduler(&stubRunner{}, SchedulerConfig{}, nil)
	require.NoError(t, err)
	_, err = bare.LastReport(context.Background())
	assert.True(t, errors.IsNotFound(err))
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(&stubRunner{}, SchedulerConfig{Spec: "@every 1h"}, nil)
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

// blockingRunner holds a pass open until its context is done.
type blockingRunner struct {
	started chan struct{}
	ended   chan error
}

func (b *blockingRunner) Run(ctx context.Context, trigger string) (*Report, error) {
	close(b.started)
	<-ctx.Done()
	b.ended <- ctx.Err()
	return &Report{Trigger: trigger}, ctx.Err()
}

func TestScheduler_StopCancelsRunningTick(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{started: make(chan struct{}), ended: make(chan error, 1)}
	s, err := NewScheduler(runner, SchedulerConfig{Spec: "@every 1s", Timeout: time.Hour}, nil)
	require.NoError(t, err)
	s.Start()

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled tick never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.ErrorIs(t, <-runner.ended, context.Canceled)
}

func TestCronLogger_ForwardsErrors(t *testing.T) {
	t.Parallel()

	log := testutil.NewMockLogger()
	cl := cronLogger{log}
	cl.Info("schedule", "entry", 1)
	cl.Error(stderrors.New("panic"), "job failed", "entry", 1)

	msg, ok := log.Find("error", "cron: job failed")
	require.True(t, ok)
	v, _ := msg.Field("entry")
	assert.Equal(t, 1, v)
	assert.True(t, log.HasMessage("debug", "cron: schedule"))
}

//Personal.AI order the ending
