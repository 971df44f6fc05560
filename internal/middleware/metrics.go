package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_orders_created_total",
			Help: "Total number of orders created upstream",
		},
	)

	orderStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_order_status_total",
			Help: "Order status transitions written to order metadata",
		},
		[]string{"status"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_notifications_total",
			Help: "Customer SMS notifications by outcome",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_webhook_events_total",
			Help: "Webhook events received by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ordersCreatedTotal)
	prometheus.MustRegister(orderStatusTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(webhookEventsTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordOrderCreated() {
	ordersCreatedTotal.Inc()
}

func RecordOrderStatus(status string) {
	orderStatusTotal.WithLabelValues(status).Inc()
}

// RecordNotification counts an SMS attempt; outcome is "sent", "failed" or "skipped".
func RecordNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
