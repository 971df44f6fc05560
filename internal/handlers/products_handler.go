package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func registerProductRoutes(r gin.IRouter, cfg HandlerConfig) {
	r.GET("/products", func(c *gin.Context) {
		list, err := cfg.Orders.ListProducts(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/products/:id", func(c *gin.Context) {
		p, err := cfg.Orders.RetrieveProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})
}
