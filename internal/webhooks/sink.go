package webhooks

import (
	"context"
	"fmt"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// Sink receives verified events from the HTTP handler.
type Sink interface {
	Deliver(ctx context.Context, ev provider.Event, raw []byte) error
}

// Publisher is the slice of aws.Publisher QueueSink needs.
type Publisher interface {
	Publish(ctx context.Context, messageBody string, attributes map[string]string) (string, error)
}

// QueueSink forwards raw events to SQS for the worker.
type QueueSink struct {
	pub Publisher
}

func NewQueueSink(pub Publisher) *QueueSink {
	return &QueueSink{pub: pub}
}

func (s *QueueSink) Deliver(ctx context.Context, ev provider.Event, raw []byte) error {
	_, err := s.pub.Publish(ctx, string(raw), map[string]string{
		"event_id":   ev.ID,
		"event_type": ev.Type,
	})
	if err != nil {
		return fmt.Errorf("enqueue event %s: %w", ev.ID, err)
	}
	return nil
}

// InlineSink processes events on the request path, used when no queue is configured.
type InlineSink struct {
	proc *Processor
}

func NewInlineSink(proc *Processor) *InlineSink {
	return &InlineSink{proc: proc}
}

func (s *InlineSink) Deliver(ctx context.Context, ev provider.Event, _ []byte) error {
	return s.proc.Process(ctx, ev)
}
