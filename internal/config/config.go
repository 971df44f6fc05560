package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by the api, worker and setup binaries.
type Config struct {
	Stripe StripeConfig `mapstructure:"stripe"`
	Twilio TwilioConfig `mapstructure:"twilio"`

	Currency string `mapstructure:"currency" validate:"required,len=3"`
	Country  string `mapstructure:"country" validate:"required,len=2"`

	Proxy     string `mapstructure:"proxy"`
	RedisAddr string `mapstructure:"redis_addr"`

	IdempotencyTable string        `mapstructure:"idempotency_table"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
	WebhookQueueURL  string        `mapstructure:"webhook_queue_url"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	RunLocal bool   `mapstructure:"run_local"`
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
}

type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	APIBase        string `mapstructure:"api_base" validate:"omitempty,url"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

// FileEnv names the optional YAML file merged under the environment.
const FileEnv = "CHECKOUT_CONFIG"

var ErrMissingSecretKey = errors.New("config: STRIPE_SECRET_KEY is required")

// Load reads defaults, then the optional CHECKOUT_CONFIG file, then environment variables.
// Nested keys map to env names by replacing "." with "_" (stripe.secret_key -> STRIPE_SECRET_KEY).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Currency = strings.ToLower(cfg.Currency)
	cfg.Country = strings.ToUpper(cfg.Country)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// every key needs a default so AutomaticEnv picks it up during Unmarshal
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.publishable_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.api_base", "")
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from", "")
	v.SetDefault("currency", "gbp")
	v.SetDefault("country", "GB")
	v.SetDefault("proxy", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("idempotency_table", "checkout-idempotency")
	v.SetDefault("idempotency_ttl", 48*time.Hour)
	v.SetDefault("webhook_queue_url", "")
	v.SetDefault("metrics_namespace", "CheckoutOrderflow")
	v.SetDefault("log_level", "info")
	v.SetDefault("run_local", false)
	v.SetDefault("http_addr", ":8080")
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validatorv10.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireSecretKey is used by binaries that talk to the payment provider.
func (c *Config) RequireSecretKey() error {
	if c.Stripe.SecretKey == "" {
		return ErrMissingSecretKey
	}
	return nil
}

// NotificationsEnabled reports whether Twilio credentials are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.From != ""
}
