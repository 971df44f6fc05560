package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/app"
	"github.com/imrishuroy/checkout-orderflow/internal/config"
	"github.com/imrishuroy/checkout-orderflow/internal/handlers"
	"github.com/imrishuroy/checkout-orderflow/internal/logging"
	"github.com/imrishuroy/checkout-orderflow/internal/middleware"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

const serviceName = "checkout-api"

func setupRouter(cfg handlers.HandlerConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.MetricsMiddleware())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.PrometheusHandler())

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := middleware.InitTracing(serviceName)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	ctx := context.Background()
	deps, err := app.New(ctx, cfg, logger, app.Options{Cache: true, Notifications: true})
	if err != nil {
		logger.Fatal("failed to init dependencies", zap.Error(err))
	}
	deps.CheckCatalog(ctx)

	r := setupRouter(handlers.HandlerConfig{
		Orders:         deps.Orders,
		Idempotency:    deps.Idempotency,
		Webhooks:       deps.WebhookSink(),
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		Country:        cfg.Country,
		Currency:       cfg.Currency,
		Logger:         logger,
		Validator:      validation.New(),
	}, logger)

	// RUN_LOCAL=true serves HTTP directly instead of through the Lambda adapter.
	if cfg.RunLocal {
		serveLocal(r, cfg.HTTPAddr, logger)
		deps.Close()
		flushTraces(shutdownTracing, logger)
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		// SMS sends must finish before the execution environment freezes
		deps.Orders.Wait()
		return resp, err
	})
}

func serveLocal(r *gin.Engine, addr string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
	}()
	logger.Info("running local server", zap.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func flushTraces(shutdown func(context.Context) error, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
