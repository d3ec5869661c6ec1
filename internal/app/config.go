package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (FULFILLMENT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	DatabaseURL string `usage:"PostgreSQL URL for the product catalog; empty keeps the catalog in memory" flag:"database-url"`
	SafetyStock int    `default:"0" usage:"Units kept on hand beyond each order" flag:"safety-stock"`
	Carrier     string `default:"DHL" usage:"Default shipping carrier"`
	Payment     PaymentConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	Seed        SeedConfig
	Health      HealthConfig
	Graceful    GracefulConfig
}

// PaymentConfig drives the payment simulator.
type PaymentConfig struct {
	DeclineAbove    string   `default:"" usage:"Decline charges above this amount; empty never declines" flag:"decline-above"`
	DeclineAccounts []string `usage:"Accounts whose charges and refunds are always declined" flag:"decline-accounts"`
}

// KafkaConfig enables the audit stream when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers for the audit stream"`
	Topic   string   `default:"fulfillment.audit" usage:"Audit topic"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Rate            float64       `default:"50" usage:"Sustained requests per second per client; 0 disables" flag:"rate-limit"`
	Burst           int           `default:"100" usage:"Burst size per client" flag:"rate-burst"`
	CleanupInterval time.Duration `default:"1m" usage:"Eviction period for idle rate-limit clients" flag:"rate-cleanup"`
}

// SeedConfig controls start-up data.
type SeedConfig struct {
	Stock   int  `default:"100" usage:"Initial stock for every catalog product" flag:"seed-stock"`
	Catalog bool `default:"true" usage:"Upsert the default products into PostgreSQL" flag:"seed-catalog"`
}

// HealthConfig controls probe scheduling.
type HealthConfig struct {
	Interval time.Duration `default:"10s" usage:"Health check interval" flag:"health-interval"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "FULFILLMENT",
		Files:     []string{"config.yaml", "/etc/fulfillment/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values aconfig cannot express as tags.
func (c *Config) Validate() error {
	if _, err := c.Payment.declineAbove(); err != nil {
		return err
	}
	if c.Seed.Stock < 0 {
		return errors.Errorf("seed stock must not be negative, got %d", c.Seed.Stock)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

func (p PaymentConfig) declineAbove() (decimal.Decimal, error) {
	if p.DeclineAbove == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(p.DeclineAbove)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse payment decline limit %q", p.DeclineAbove)
	}
	return d, nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL and PORT
// variables onto the FULFILLMENT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
