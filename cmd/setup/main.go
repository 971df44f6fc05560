package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/catalog"
	"github.com/imrishuroy/checkout-orderflow/internal/config"
	"github.com/imrishuroy/checkout-orderflow/internal/logging"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/setup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var fixturesPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision the storefront products and SKUs with the payment provider",
		Long: `Creates the heets and iqos products and their SKUs in the configured currency.
Running it again is harmless: an existing catalog is reported and left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), fixturesPath)
		},
	}
	cmd.Flags().StringVarP(&fixturesPath, "fixtures", "f", "", "YAML fixtures file (defaults to the built-in catalog)")
	return cmd
}

func run(ctx context.Context, fixturesPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireSecretKey(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fixtures := setup.DefaultFixtures()
	if fixturesPath != "" {
		data, err := os.ReadFile(fixturesPath)
		if err != nil {
			return fmt.Errorf("read fixtures: %w", err)
		}
		if fixtures, err = setup.ParseFixtures(data); err != nil {
			return err
		}
	}

	var opts []provider.Option
	if cfg.Stripe.APIBase != "" {
		opts = append(opts, provider.WithBaseURL(cfg.Stripe.APIBase))
	}
	runner := setup.NewRunner(provider.NewClient(cfg.Stripe.SecretKey, opts...), cfg.Currency, fixtures, logger)

	err = runner.Run(ctx)
	switch {
	case errors.Is(err, setup.ErrAlreadyProvisioned):
		fmt.Println("Products have already been registered. Delete them from your dashboard to run this setup.")
	case err != nil:
		return err
	default:
		fmt.Println("Setup complete.")
		invalidateCache(ctx, cfg, fixtures, logger)
	}

	ok, err := runner.Verify(ctx)
	if err != nil {
		logger.Warn("catalog verification failed", zap.Error(err))
		return nil
	}
	if !ok {
		fmt.Println("Warning: the catalog does not hold exactly the heets and iqos products.")
	}
	return nil
}

// invalidateCache drops cached catalog entries so the API serves the new products.
func invalidateCache(ctx context.Context, cfg *config.Config, fixtures setup.Fixtures, logger *zap.Logger) {
	if cfg.RedisAddr == "" {
		return
	}
	rdb, err := catalog.InitRedis(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.Warn("catalog cache not invalidated", zap.Error(err))
		return
	}
	defer rdb.Close()

	ids := make([]string, 0, len(fixtures.Products))
	for _, p := range fixtures.Products {
		ids = append(ids, p.ID)
	}
	catalog.NewCache(rdb, catalog.DefaultTTL, logger).Invalidate(ctx, ids...)
}
