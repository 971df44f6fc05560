package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/app"
	"github.com/imrishuroy/checkout-orderflow/internal/config"
	"github.com/imrishuroy/checkout-orderflow/internal/logging"
)

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

	deps, err := app.New(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to init dependencies", zap.Error(err))
	}
	defer deps.Close()

	p := NewProcessor(deps.WebhookProcessor(), logger)

	// If RUN_LOCAL=true, process a single event from LOCAL_SQS_BODY and exit.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY must hold a webhook event")
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: body},
			},
		}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local handler failed", zap.Error(err), zap.Int("failures", len(resp.BatchItemFailures)))
		}
		return
	}

	lambda.Start(p.Handle)
}
