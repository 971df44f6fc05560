package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/catalog"
	"github.com/imrishuroy/checkout-orderflow/internal/middleware"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

const defaultNotifyTimeout = 20 * time.Second

// validProducts are the only product ids the storefront sells.
var validProducts = map[string]bool{"iqos": true, "heets": true}

// Notifier sends the order confirmation SMS.
type Notifier interface {
	SendConfirmation(ctx context.Context, name, phone string) (string, error)
}

// Service wraps the payment provider's order, product and charge APIs. The provider is the
// source of truth; nothing is persisted locally.
type Service struct {
	api           provider.API
	cache         *catalog.Cache
	notifier      Notifier
	notifyTimeout time.Duration
	logger        *zap.Logger
	tracer        trace.Tracer

	notifyWG sync.WaitGroup
}

type Option func(*Service)

func WithCache(c *catalog.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.notifyTimeout = d }
}

func NewService(api provider.API, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		api:           api,
		notifyTimeout: defaultNotifyTimeout,
		logger:        logger,
		tracer:        otel.Tracer("github.com/imrishuroy/checkout-orderflow/internal/orders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder creates an order upstream with status "created" and the business metadata.
func (s *Service) CreateOrder(ctx context.Context, currency string, items []provider.OrderItem, email string, shipping provider.Shipping, extra Extra) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.CreateOrder")
	defer span.End()

	order, err := s.api.CreateOrder(ctx, provider.OrderParams{
		Currency: currency,
		Email:    email,
		Items:    items,
		Shipping: &shipping,
		Metadata: newOrderMetadata(extra),
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, upstream("create order", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.amount", order.Amount))
	middleware.RecordOrderCreated()
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency),
	)
	return order, nil
}

func (s *Service) RetrieveOrder(ctx context.Context, id string) (*Order, error) {
	order, err := s.api.GetOrder(ctx, id)
	if err != nil {
		return nil, lookupErr("retrieve order "+id, err)
	}
	return order, nil
}

// UpdateOrder applies a partial update; only the non-zero fields of partial are sent.
func (s *Service) UpdateOrder(ctx context.Context, id string, partial provider.OrderUpdateParams) (*Order, error) {
	order, err := s.api.UpdateOrder(ctx, id, partial)
	if err != nil {
		return nil, lookupErr("update order "+id, err)
	}
	return order, nil
}

// SetStatus writes the metadata status of an order.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Order, error) {
	order, err := s.UpdateOrder(ctx, id, provider.OrderUpdateParams{
		Metadata: map[string]string{"status": status},
	})
	if err != nil {
		return nil, err
	}
	middleware.RecordOrderStatus(status)
	s.logger.Info("order status updated", zap.String("order_id", id), zap.String("status", status))
	return order, nil
}

func (s *Service) ListProducts(ctx context.Context) (*provider.ProductList, error) {
	list, err := s.cache.Products(ctx, s.api.ListProducts)
	if err != nil {
		return nil, upstream("list products", err)
	}
	return list, nil
}

func (s *Service) RetrieveProduct(ctx context.Context, id string) (*provider.Product, error) {
	p, err := s.cache.Product(ctx, id, s.api.GetProduct)
	if err != nil {
		return nil, lookupErr("retrieve product "+id, err)
	}
	return p, nil
}

// ValidateCatalog reports whether list holds exactly the two storefront products.
func ValidateCatalog(list *provider.ProductList) bool {
	if list == nil || len(list.Data) != 2 {
		return false
	}
	for _, p := range list.Data {
		if !validProducts[p.ID] {
			return false
		}
	}
	return true
}

// NotifyCustomer sends the confirmation SMS in the background. Failures are logged and
// counted; they never reach the caller.
func (s *Service) NotifyCustomer(ctx context.Context, name, phone string) {
	if s.notifier == nil {
		middleware.RecordNotification("skipped")
		s.logger.Debug("sms notifications disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		defer cancel()

		sid, err := s.notifier.SendConfirmation(ctx, name, phone)
		if err != nil {
			middleware.RecordNotification("failed")
			s.logger.Warn("customer notification failed", zap.Error(err))
			return
		}
		middleware.RecordNotification("sent")
		s.logger.Info("customer notified", zap.String("message_sid", sid))
	}()
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

// PayOrder charges source for order id. Orders already pending or paid are refused with
// ErrOrderAlreadyProcessed and the current order and source. The source is re-read upstream
// and charged only when chargeable; the charge outcome is written to the order status.
func (s *Service) PayOrder(ctx context.Context, id string, source *provider.Source) (*PayResult, error) {
	ctx, span := s.tracer.Start(ctx, "orders.PayOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if source == nil || source.ID == "" {
		return nil, ErrMissingSource
	}

	order, err := s.RetrieveOrder(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	status := Status(order)
	if status == StatusPending || status == StatusPaid {
		return &PayResult{Order: order, Source: source}, ErrOrderAlreadyProcessed
	}

	current, err := s.api.GetSource(ctx, source.ID)
	if err != nil {
		recordSpanError(span, err)
		return nil, lookupErr("retrieve source "+source.ID, err)
	}
	span.SetAttributes(attribute.String("source.status", current.Status))

	if current.Status != provider.SourceStatusChargeable {
		return &PayResult{Order: order, Source: current}, nil
	}

	newStatus, err := s.charge(ctx, order, current)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	order, err = s.SetStatus(ctx, order.ID, newStatus)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &PayResult{Order: order, Source: current}, nil
}

// charge returns the order status implied by the charge. Declines are a "failed" order,
// not an error; provider outages are returned.
func (s *Service) charge(ctx context.Context, order *Order, source *provider.Source) (string, error) {
	// the order id as idempotency key makes retried pay calls charge at most once
	chargeCtx := provider.WithIdempotencyKey(ctx, order.ID)
	ch, err := s.api.CreateCharge(chargeCtx, provider.ChargeParams{
		Amount:       order.Amount,
		Currency:     order.Currency,
		Source:       source.ID,
		ReceiptEmail: order.Email,
		Metadata:     map[string]string{"order": order.ID},
	})
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			s.logger.Warn("charge declined",
				zap.String("order_id", order.ID),
				zap.String("reason", apiErr.Message),
			)
			return StatusFailed, nil
		}
		return "", upstream(fmt.Sprintf("charge order %s", order.ID), err)
	}

	switch ch.Status {
	case provider.ChargeStatusSucceeded:
		return StatusPaid, nil
	case provider.ChargeStatusPending:
		return StatusPending, nil
	default:
		return StatusFailed, nil
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
