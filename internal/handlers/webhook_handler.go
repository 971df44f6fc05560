package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/webhooks"
)

const maxWebhookBody = 64 << 10

func registerWebhookRoutes(r gin.IRouter, cfg HandlerConfig) {
	r.POST("/webhook", func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cfg.Logger.Warn("webhook body too large", zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large", "detail": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "detail": err.Error()})
			return
		}

		var ev provider.Event
		if cfg.WebhookSecret != "" {
			ev, err = webhooks.ConstructEvent(payload, c.GetHeader(webhooks.SignatureHeader), cfg.WebhookSecret, cfg.NowFunc())
		} else {
			ev, err = webhooks.ParseEvent(payload)
		}
		if err != nil {
			cfg.Logger.Warn("webhook rejected", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event", "detail": err.Error()})
			return
		}

		if err := cfg.Webhooks.Deliver(c.Request.Context(), ev, payload); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	})
}
