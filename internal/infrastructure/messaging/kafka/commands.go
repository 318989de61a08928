package kafka

import (
	"context"

	"github.com/turtacn/SessionSync/internal/application/backfill"
	"github.com/turtacn/SessionSync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SessionSync/pkg/errors"
)

// BackfillRunner runs an on-demand reconciliation.  *backfill.Scheduler
// implements it.
type BackfillRunner interface {
	RunNow(ctx context.Context, trigger string) (*backfill.Report, error)
}

// NewBackfillCommandHandler handles appointment.backfill.requested commands.
// Malformed commands are logged and dropped; a failed run is returned so the
// consumer retries it, which is safe because a pass is idempotent.
func NewBackfillCommandHandler(runner BackfillRunner, log logging.Logger) MessageHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("backfill.command")

	return func(ctx context.Context, msg *Message) error {
		env, err := MessageToEventEnvelope(msg)
		if err != nil {
			log.Warn("dropping malformed backfill command", logging.Int64("offset", msg.Offset), logging.Err(err))
			return nil
		}
		var payload BackfillRequestedPayload
		if err := env.DecodePayload(&payload); err != nil {
			log.Warn("dropping malformed backfill command", logging.String("event_id", env.EventID), logging.Err(err))
			return nil
		}

		report, err := runner.RunNow(ctx, backfill.TriggerCommand)
		if err != nil && report == nil {
			return errors.Wrap(err, errors.ErrCodeBackfillFailed, "backfill command failed").WithDetail(env.EventID)
		}
		fields := []logging.Field{
			logging.String("event_id", env.EventID),
			logging.String("requested_by", payload.RequestedBy),
		}
		if report != nil {
			fields = append(fields,
				logging.Int("fixed", report.Fixed),
				logging.Int("failed", len(report.Failures)),
				logging.Int("degraded", report.Degraded),
				logging.Int("skipped", report.Skipped))
		}
		if err != nil {
			log.Warn("backfill command finished early", append(fields, logging.Err(err))...)
			return nil
		}
		log.Info("backfill command completed", fields...)
		return nil
	}
}

// NewBackfillRequest builds the command message that asks workers to run a
// pass.
func NewBackfillRequest(source, requestedBy, reason string) (*ProducerMessage, error) {
	env, err := NewEventEnvelope(TopicBackfillRequested, source, BackfillRequestedPayload{
		RequestedBy: requestedBy,
		Reason:      reason,
	})
	if err != nil {
		return nil, err
	}
	return env.ToMessage(TopicBackfillRequested)
}

//Personal.AI order the ending
