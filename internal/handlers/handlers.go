package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/idempotency"
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
	"github.com/imrishuroy/checkout-orderflow/internal/webhooks"
)

// OrderService is the slice of orders.Service the HTTP API needs.
type OrderService interface {
	CreateOrder(ctx context.Context, currency string, items []provider.OrderItem, email string, shipping provider.Shipping, extra orders.Extra) (*orders.Order, error)
	RetrieveOrder(ctx context.Context, id string) (*orders.Order, error)
	PayOrder(ctx context.Context, id string, source *provider.Source) (*orders.PayResult, error)
	ListProducts(ctx context.Context) (*provider.ProductList, error)
	RetrieveProduct(ctx context.Context, id string) (*provider.Product, error)
	NotifyCustomer(ctx context.Context, name, phone string)
}

// IdempotencyStore is the slice of idempotency.Store used to deduplicate order submissions.
type IdempotencyStore interface {
	Claim(ctx context.Context, scope, key, ref string) (bool, *idempotency.Record, error)
	MarkDone(ctx context.Context, scope, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, scope, key, note string) error
}

// HandlerConfig groups dependencies for the API routes.
type HandlerConfig struct {
	Orders      OrderService
	Idempotency IdempotencyStore // optional; without it Idempotency-Key headers are ignored
	Webhooks    webhooks.Sink

	PublishableKey string
	WebhookSecret  string // empty disables signature checks
	Country        string
	Currency       string

	Logger    *zap.Logger
	Validator *validatorv10.Validate
	NowFunc   func() time.Time
}

// RegisterRoutes registers the checkout API on r.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	registerConfigRoutes(r, cfg)
	registerProductRoutes(r, cfg)
	registerOrderRoutes(r, cfg)
	registerWebhookRoutes(r, cfg)
}

// writeError maps service errors to JSON error responses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ue *orders.UpstreamError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, orders.ErrMissingSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_source", "detail": err.Error()})
	case errors.As(err, &ue):
		c.JSON(ue.HTTPStatus(), gin.H{"error": "upstream_error", "detail": ue.Message()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
	}
}
