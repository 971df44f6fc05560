// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/aws"
	"github.com/imrishuroy/checkout-orderflow/internal/catalog"
	"github.com/imrishuroy/checkout-orderflow/internal/config"
	"github.com/imrishuroy/checkout-orderflow/internal/idempotency"
	"github.com/imrishuroy/checkout-orderflow/internal/notify"
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/webhooks"
)

// Options selects the optional collaborators a binary needs.
type Options struct {
	Cache         bool // Redis catalog cache, when REDIS_ADDR is set
	Notifications bool // Twilio SMS, when credentials are set
}

type Deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	AWS         *aws.AWSClients
	Provider    *provider.Client
	Orders      *orders.Service
	Idempotency *idempotency.Store
	Metrics     *aws.Metrics

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Deps, error) {
	if err := cfg.RequireSecretKey(); err != nil {
		return nil, err
	}

	clients, err := aws.NewAWSClients(ctx, aws.DefaultMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}

	var popts []provider.Option
	if cfg.Stripe.APIBase != "" {
		popts = append(popts, provider.WithBaseURL(cfg.Stripe.APIBase))
	}
	api := provider.NewClient(cfg.Stripe.SecretKey, popts...)

	d := &Deps{
		Config:      cfg,
		Logger:      logger,
		AWS:         clients,
		Provider:    api,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Metrics:     aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
	}

	var sopts []orders.Option
	if opts.Cache && cfg.RedisAddr != "" {
		rdb, err := catalog.InitRedis(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Warn("catalog cache disabled", zap.Error(err))
		} else {
			d.closers = append(d.closers, rdb.Close)
			sopts = append(sopts, orders.WithCache(catalog.NewCache(rdb, catalog.DefaultTTL, logger)))
		}
	}
	if opts.Notifications && cfg.NotificationsEnabled() {
		sms, err := notify.NewSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("init sms: %w", err)
		}
		sopts = append(sopts, orders.WithNotifier(sms))
	}
	d.Orders = orders.NewService(api, logger, sopts...)
	return d, nil
}

// WebhookProcessor applies events to orders, deduplicated through the idempotency table.
func (d *Deps) WebhookProcessor() *webhooks.Processor {
	return webhooks.NewProcessor(d.Orders, d.Idempotency, d.Metrics, d.Logger)
}

// WebhookSink queues events when a queue is configured and processes them inline otherwise.
func (d *Deps) WebhookSink() webhooks.Sink {
	if d.Config.WebhookQueueURL != "" {
		return webhooks.NewQueueSink(aws.NewPublisher(d.AWS.SQS, d.Config.WebhookQueueURL))
	}
	d.Logger.Info("no webhook queue configured, processing events inline")
	return webhooks.NewInlineSink(d.WebhookProcessor())
}

// CheckCatalog logs whether the provider catalog holds the storefront products.
func (d *Deps) CheckCatalog(ctx context.Context) {
	list, err := d.Orders.ListProducts(ctx)
	if err != nil {
		d.Logger.Warn("catalog check failed", zap.Error(err))
		return
	}
	if !orders.ValidateCatalog(list) {
		d.Logger.Warn("catalog does not match the storefront; run setup", zap.Int("products", len(list.Data)))
		return
	}
	d.Logger.Info("catalog ok")
}

// Close waits for background notifications and releases connections.
func (d *Deps) Close() {
	d.Orders.Wait()
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.Logger.Warn("close", zap.Error(err))
		}
	}
}
