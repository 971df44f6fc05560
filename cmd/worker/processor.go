package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/webhooks"
)

// EventProcessor applies a single webhook event.
type EventProcessor interface {
	Process(ctx context.Context, ev provider.Event) error
}

// Processor handles SQS batches of webhook events queued by the API.
type Processor struct {
	events EventProcessor
	logger *zap.Logger
}

func NewProcessor(ep EventProcessor, logger *zap.Logger) *Processor {
	return &Processor{events: ep, logger: logger}
}

// Handle processes every record and reports the failed ones so only those are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// failed records are retried by SQS and end up in the DLQ
			p.logger.Error("webhook event failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	// the signature was checked by the API before the event was queued
	ev, err := webhooks.ParseEvent([]byte(rec.Body))
	if err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	p.logger.Info("received webhook event",
		zap.String("event_id", ev.ID), zap.String("event_type", ev.Type), zap.String("message_id", rec.MessageId))

	if err := p.events.Process(ctx, ev); err != nil {
		return fmt.Errorf("process event %s: %w", ev.ID, err)
	}
	return nil
}
