package webhooks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/idempotency"
	"github.com/imrishuroy/checkout-orderflow/internal/middleware"
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// MetricEventsProcessed is the CloudWatch metric counted once per processed event.
const MetricEventsProcessed = "WebhookEventsProcessed"

const outcomeDuplicate = "duplicate"

// ErrEventInProgress means another consumer holds the event; the delivery should be retried.
var ErrEventInProgress = errors.New("webhook event is being processed elsewhere")

type EventApplier interface {
	ApplyEvent(ctx context.Context, ev provider.Event) (orders.Outcome, error)
}

// Deduper is the slice of idempotency.Store the processor uses.
type Deduper interface {
	Claim(ctx context.Context, scope, key, ref string) (bool, *idempotency.Record, error)
	MarkDone(ctx context.Context, scope, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, scope, key, note string) error
}

type MetricsRecorder interface {
	Count(ctx context.Context, name string, dimensions map[string]string) error
}

// Processor applies webhook events to orders at most once per event id.
type Processor struct {
	applier EventApplier
	dedup   Deduper
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewProcessor builds a Processor. dedup and metrics may be nil.
func NewProcessor(applier EventApplier, dedup Deduper, metrics MetricsRecorder, logger *zap.Logger) *Processor {
	return &Processor{applier: applier, dedup: dedup, metrics: metrics, logger: logger}
}

func (p *Processor) Process(ctx context.Context, ev provider.Event) error {
	log := p.logger.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	if p.dedup != nil {
		claimed, rec, err := p.dedup.Claim(ctx, idempotency.ScopeWebhookEvent, ev.ID, ev.Type)
		if err != nil {
			return fmt.Errorf("claim event %s: %w", ev.ID, err)
		}
		if !claimed {
			if rec != nil && rec.Status == idempotency.StatusInProgress {
				return ErrEventInProgress
			}
			log.Info("duplicate webhook event skipped")
			p.count(ctx, ev.Type, outcomeDuplicate)
			return nil
		}
	}

	outcome, err := p.applier.ApplyEvent(ctx, ev)
	if err != nil {
		log.Error("webhook event failed", zap.Error(err))
		p.count(ctx, ev.Type, "failed")
		if p.dedup != nil {
			if mErr := p.dedup.MarkFailed(ctx, idempotency.ScopeWebhookEvent, ev.ID, err.Error()); mErr != nil {
				log.Warn("mark event failed", zap.Error(mErr))
			}
		}
		return err
	}

	log.Info("webhook event processed", zap.String("outcome", string(outcome)))
	p.count(ctx, ev.Type, string(outcome))
	if p.dedup != nil {
		if err := p.dedup.MarkDone(ctx, idempotency.ScopeWebhookEvent, ev.ID, string(outcome), 200); err != nil {
			// applied already; a redelivery will be skipped by the order status checks
			log.Warn("mark event done", zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) count(ctx context.Context, eventType, outcome string) {
	middleware.RecordWebhookEvent(eventType, outcome)
	if p.metrics == nil {
		return
	}
	err := p.metrics.Count(ctx, MetricEventsProcessed, map[string]string{
		"EventType": eventType,
		"Outcome":   outcome,
	})
	if err != nil {
		p.logger.Warn("publish webhook metric", zap.Error(err))
	}
}
