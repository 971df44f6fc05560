package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// Webhook event types the service acts on.
const (
	EventSourceChargeable = "source.chargeable"
	EventSourceFailed     = "source.failed"
	EventSourceCanceled   = "source.canceled"
	EventChargeSucceeded  = "charge.succeeded"
	EventChargeFailed     = "charge.failed"
	EventChargeCaptured   = "charge.captured"
)

// Outcome reports what ApplyEvent did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeIgnored Outcome = "ignored"
)

// orderMetadataKey links sources and charges back to their order.
const orderMetadataKey = "order"

// ApplyEvent moves an order forward from a provider webhook event. Events for unknown
// types or without an order reference are ignored; events that would not change the order
// are skipped.
func (s *Service) ApplyEvent(ctx context.Context, ev provider.Event) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "orders.ApplyEvent", trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", ev.Type),
	))
	defer span.End()

	var (
		outcome Outcome
		err     error
	)
	switch ev.Type {
	case EventSourceChargeable, EventSourceFailed, EventSourceCanceled:
		outcome, err = s.applySourceEvent(ctx, ev)
	case EventChargeSucceeded, EventChargeFailed, EventChargeCaptured:
		outcome, err = s.applyChargeEvent(ctx, ev)
	default:
		outcome = OutcomeIgnored
	}
	if err != nil {
		recordSpanError(span, err)
		return outcome, err
	}
	span.SetAttributes(attribute.String("event.outcome", string(outcome)))
	return outcome, nil
}

func (s *Service) applySourceEvent(ctx context.Context, ev provider.Event) (Outcome, error) {
	var src provider.Source
	if err := json.Unmarshal(ev.Data.Object, &src); err != nil {
		return OutcomeIgnored, fmt.Errorf("decode source of event %s: %w", ev.ID, err)
	}
	orderID := src.Metadata[orderMetadataKey]
	if orderID == "" {
		s.logger.Info("source event without order reference", zap.String("event_id", ev.ID))
		return OutcomeIgnored, nil
	}

	order, err := s.RetrieveOrder(ctx, orderID)
	if err != nil {
		return OutcomeIgnored, err
	}
	status := Status(order)

	if ev.Type == EventSourceChargeable {
		if status != StatusCreated {
			return OutcomeSkipped, nil
		}
		if _, err := s.PayOrder(ctx, orderID, &src); err != nil {
			return OutcomeIgnored, err
		}
		return OutcomeApplied, nil
	}

	// failed or canceled source
	if status == StatusPaid || status == StatusCaptured || status == StatusFailed {
		return OutcomeSkipped, nil
	}
	if _, err := s.SetStatus(ctx, orderID, StatusFailed); err != nil {
		return OutcomeIgnored, err
	}
	return OutcomeApplied, nil
}

func (s *Service) applyChargeEvent(ctx context.Context, ev provider.Event) (Outcome, error) {
	var ch provider.Charge
	if err := json.Unmarshal(ev.Data.Object, &ch); err != nil {
		return OutcomeIgnored, fmt.Errorf("decode charge of event %s: %w", ev.ID, err)
	}
	orderID := ch.Metadata[orderMetadataKey]
	if orderID == "" {
		s.logger.Info("charge event without order reference", zap.String("event_id", ev.ID))
		return OutcomeIgnored, nil
	}

	var target string
	switch ev.Type {
	case EventChargeSucceeded:
		target = StatusPaid
	case EventChargeFailed:
		target = StatusFailed
	case EventChargeCaptured:
		target = StatusCaptured
	}

	order, err := s.RetrieveOrder(ctx, orderID)
	if err != nil {
		return OutcomeIgnored, err
	}
	current := Status(order)
	if current == target || (current == StatusCaptured && target == StatusPaid) {
		return OutcomeSkipped, nil
	}
	if _, err := s.SetStatus(ctx, orderID, target); err != nil {
		return OutcomeIgnored, err
	}
	return OutcomeApplied, nil
}
