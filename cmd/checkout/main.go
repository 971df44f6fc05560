package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/checkout"
	"github.com/imrishuroy/checkout-orderflow/internal/logging"
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

func main() {
	var apiURL string

	rootCmd := &cobra.Command{
		Use:           "checkout",
		Short:         "Inspect the checkout API and follow orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("CHECKOUT_API_URL", "http://localhost:8080"), "checkout API base URL")

	rootCmd.AddCommand(configCmd(&apiURL))
	rootCmd.AddCommand(orderCmd(&apiURL))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the store configuration and payment methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := checkout.NewClient(*apiURL).GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func orderCmd(apiURL *string) *cobra.Command {
	var (
		watch    bool
		timeout  time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "order [order-id]",
		Short: "Show an order, optionally following it until it is paid or failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := checkout.NewClient(*apiURL)
			if !watch {
				order, err := client.GetOrderStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(order)
			}

			logger, err := logging.New("info")
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p := checkout.NewPoller(client, func(ctx context.Context, o *provider.Order) {
				act := checkout.Interpret(o, nil, nil)
				logger.Info("order status", zap.String("order_id", o.ID),
					zap.String("status", orders.Status(o)), zap.Stringer("action", act.Kind))
			}, logger, checkout.WithPollTimeout(timeout), checkout.WithPollInterval(interval))

			task := p.Start(ctx, args[0])
			err = task.Wait()
			if errors.Is(err, checkout.ErrPollTimeout) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll until the order settles")
	cmd.Flags().DurationVar(&timeout, "timeout", checkout.DefaultPollTimeout, "how long to watch")
	cmd.Flags().DurationVar(&interval, "interval", checkout.DefaultPollInterval, "delay between status checks")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
