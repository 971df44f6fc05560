package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggerMiddleware_LogsTraceID(t *testing.T) {
	shutdown, err := InitTracing("checkout-test")
	if err != nil {
		t.Fatalf("init tracing: %v", err)
	}
	defer shutdown(context.Background())

	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(otelgin.Middleware("checkout-test"))
	r.Use(LoggerMiddleware(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if id, _ := fields["trace_id"].(string); len(id) != 32 {
		t.Fatalf("expected a trace id, got %v", fields["trace_id"])
	}
	if fields["query"] != "x=1" {
		t.Fatalf("query not logged: %v", fields["query"])
	}
}

func TestLoggerMiddleware_ServerErrorAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(LoggerMiddleware(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("expected an error-level access log")
	}
}

func TestPrometheusHandler_ExposesCounters(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/metrics", PrometheusHandler())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/or_1", nil))
	RecordNotification("sent")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, `http_requests_total{endpoint="/orders/:id",method="GET",status="200"}`) {
		t.Fatalf("route template not used as endpoint label")
	}
	if !strings.Contains(body, `checkout_notifications_total{outcome="sent"}`) {
		t.Fatalf("notification counter missing")
	}
}
