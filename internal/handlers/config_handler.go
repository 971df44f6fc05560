package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/checkout-orderflow/internal/payment"
)

func registerConfigRoutes(r gin.IRouter, cfg HandlerConfig) {
	r.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"publishable_key": cfg.PublishableKey,
			"country":         cfg.Country,
			"currency":        cfg.Currency,
			"payment_methods": payment.Methods(),
		})
	})
}
