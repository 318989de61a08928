package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/internal/testutil"
	"github.com/turtacn/SessionSync/pkg/errors"
)

func nopLogger() logging.Logger { return logging.NewNopLogger() }

type stubRunner struct {
	report   *backfill.Report
	err      error
	triggers []string
}

func (s *stubRunner) RunNow(_ context.Context, trigger string) (*backfill.Report, error) {
	s.triggers = append(s.triggers, trigger)
	return s.report, s.err
}

func commandMessage(t *testing.T) *Message {
	t.Helper()
	pm, err := NewBackfillRequest("sessionctl", "ops@example.com", "manual repair")
	require.NoError(t, err)
	assert.Equal(t, TopicBackfillRequested, pm.Topic)
	return &Message{Topic: pm.Topic, Value: pm.Value, Headers: pm.Headers}
}

func TestBackfillCommandHandler_RunsPass(t *testing.T) {
	runner := &stubRunner{report: &backfill.Report{Fixed: 3}}
	log := testutil.NewMockLogger()
	handler := NewBackfillCommandHandler(runner, log)

	require.NoError(t, handler(context.Background(), commandMessage(t)))
	assert.Equal(t, []string{backfill.TriggerCommand}, runner.triggers)

	entry, ok := log.Find("info", "backfill command completed")
	require.True(t, ok)
	fixed, _ := entry.Field("fixed")
	assert.Equal(t, 3, fixed)
	by, _ := entry.Field("requested_by")
	assert.Equal(t, "ops@example.com", by)
}

func TestBackfillCommandHandler_MalformedIsDropped(t *testing.T) {
	runner := &stubRunner{}
	log := testutil.NewMockLogger()
	handler := NewBackfillCommandHandler(runner, log)

	require.NoError(t, handler(context.Background(), &Message{Value: []byte("not json")}))
	require.NoError(t, handler(context.Background(), &Message{Value: []byte(`{"payload":"oops"}`)}))
	assert.Empty(t, runner.triggers)
	assert.True(t, log.HasMessage("warn", "dropping malformed backfill command"))
}

func TestBackfillCommandHandler_FailureIsRetryable(t *testing.T) {
	runner := &stubRunner{err: errors.Persistence(stderrors.New("db down"), "find confirmed")}
	handler := NewBackfillCommandHandler(runner, nil)

	err := handler(context.Background(), commandMessage(t))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBackfillFailed))
	assert.True(t, errors.IsPersistence(err))
}

func TestBackfillCommandHandler_PartialRunIsNotRetried(t *testing.T) {
	runner := &stubRunner{report: &backfill.Report{Fixed: 1}, err: context.DeadlineExceeded}
	log := testutil.NewMockLogger()
	handler := NewBackfillCommandHandler(runner, log)

	require.NoError(t, handler(context.Background(), commandMessage(t)))
	assert.True(t, log.HasMessage("warn", "backfill command finished early"))
}

//Personal.AI order the ending
