package main

import (
	"context"

	"github.com/turtacn/SessionSync/internal/infrastructure/messaging/kafka"
)

// kafkaBackfillRequester publishes backfill commands for the worker to pick
// up.
type kafkaBackfillRequester struct {
	producer *kafka.Producer
	source   string
}

func (r *kafkaBackfillRequester) RequestBackfill(ctx context.Context, requestedBy, reason string) error {
	msg, err := kafka.NewBackfillRequest(r.source, requestedBy, reason)
	if err != nil {
		return err
	}
	return r.producer.Publish(ctx, msg)
}

//Personal.AI order the ending
