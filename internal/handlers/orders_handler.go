package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/idempotency"
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

// IdempotencyHeader is the optional client key deduplicating order submissions.
const IdempotencyHeader = "Idempotency-Key"

func registerOrderRoutes(r gin.IRouter, cfg HandlerConfig) {
	r.POST("/orders", func(c *gin.Context) { createOrder(c, cfg) })

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Orders.RetrieveOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
	})

	r.POST("/orders/:id/pay", func(c *gin.Context) {
		var req validation.PayOrderRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		res, err := cfg.Orders.PayOrder(c.Request.Context(), c.Param("id"), req.Source)
		if errors.Is(err, orders.ErrOrderAlreadyProcessed) {
			c.JSON(http.StatusForbidden, res)
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

func createOrder(c *gin.Context, cfg HandlerConfig) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	requestID := c.GetHeader("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-Id", requestID)

	idempKey := c.GetHeader(IdempotencyHeader)
	dedupe := idempKey != "" && cfg.Idempotency != nil
	if dedupe {
		claimed, rec, err := cfg.Idempotency.Claim(ctx, idempotency.ScopeCreateOrder, idempKey, requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
			return
		}
		if !claimed {
			replay(c, rec)
			return
		}
	}

	// the same key makes the provider collapse retried creates
	order, err := cfg.Orders.CreateOrder(provider.WithIdempotencyKey(ctx, idempKey),
		req.Currency, req.OrderItems(), req.Email, req.ShippingDetails(), req.OrderExtra())
	if err != nil {
		if dedupe {
			if mErr := cfg.Idempotency.MarkFailed(ctx, idempotency.ScopeCreateOrder, idempKey, fmt.Sprintf("create_failed: %v", err)); mErr != nil {
				cfg.Logger.Warn("mark idempotency failed", zap.Error(mErr))
			}
		}
		writeError(c, err)
		return
	}

	if req.Shipping.Phone != "" {
		cfg.Orders.NotifyCustomer(ctx, req.Shipping.Name, req.Shipping.Phone)
	}

	body, err := json.Marshal(gin.H{"order": order})
	if err != nil {
		writeError(c, fmt.Errorf("encode order: %w", err))
		return
	}
	if dedupe {
		if err := cfg.Idempotency.MarkDone(ctx, idempotency.ScopeCreateOrder, idempKey, string(body), http.StatusCreated); err != nil {
			cfg.Logger.Warn("mark idempotency done", zap.Error(err), zap.String("order_id", order.ID))
		}
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a duplicate submission from the stored idempotency record.
func replay(c *gin.Context, rec *idempotency.Record) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && json.Valid([]byte(rec.ResponseBody)) {
			c.Header("Idempotent-Replayed", "true")
			c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"request_id": rec.Ref})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "request_id": rec.Ref})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}
