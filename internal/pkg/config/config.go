// Package config loads the order service configuration from a YAML file and
// lets environment variables override individual keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Inventory InventoryConfig `yaml:"inventory"`
	Payment   PaymentConfig   `yaml:"payment"`
	WMS       WMSConfig       `yaml:"wms"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SagaLog   SagaLogConfig   `yaml:"sagalog"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type InventoryConfig struct {
	// Addr is the host:port of inventory.InventoryService.
	Addr string `yaml:"addr"`
}

// PaymentConfig.Timeout and WMSConfig.Timeout are per-call HTTP client
// timeouts. Zero, the default, means no client timeout.
type PaymentConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	Currency string        `yaml:"currency"`
	Method   string        `yaml:"method"`
	Timeout  time.Duration `yaml:"timeout"`
}

type WMSConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// RabbitMQConfig with an empty URL disables the event publisher and the
// status listener.
type RabbitMQConfig struct {
	URL         string `yaml:"url"`
	OrdersQueue string `yaml:"ordersQueue"`
	StatusQueue string `yaml:"statusQueue"`
	MaxRetries  int    `yaml:"maxRetries"`
}

// RedisConfig with an empty Addr disables idempotent create replay.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotencyTtl"`
}

// PostgresConfig with an empty DSN keeps orders in memory.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// SagaLogConfig with an empty Path disables the saga log.
type SagaLogConfig struct {
	Path string `yaml:"path"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	Environment  string  `yaml:"environment"`
	SampleRatio  float64 `yaml:"sampleRatio"`
	LogLevel     string  `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Inventory: InventoryConfig{Addr: "localhost:50051"},
		Payment:   PaymentConfig{Currency: "EUR", Method: "CARD"},
		WMS:       WMSConfig{},
		RabbitMQ:  RabbitMQConfig{OrdersQueue: "orders.queue", StatusQueue: "status.queue", MaxRetries: 5},
		Redis:     RedisConfig{IdempotencyTTL: 24 * time.Hour},
		SagaLog:   SagaLogConfig{Path: "./data/saga.db"},
		Telemetry: TelemetryConfig{Environment: "local", LogLevel: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides through
// getenv, and validates the result. A missing file is not an error when
// path is empty.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"OMS_HTTP_ADDR", &cfg.HTTP.Addr},
		{"OMS_INVENTORY_ADDR", &cfg.Inventory.Addr},
		{"OMS_PAYMENT_BASE_URL", &cfg.Payment.BaseURL},
		{"OMS_PAYMENT_CURRENCY", &cfg.Payment.Currency},
		{"OMS_PAYMENT_METHOD", &cfg.Payment.Method},
		{"OMS_WMS_BASE_URL", &cfg.WMS.BaseURL},
		{"OMS_RABBITMQ_URL", &cfg.RabbitMQ.URL},
		{"OMS_REDIS_ADDR", &cfg.Redis.Addr},
		{"OMS_REDIS_PASSWORD", &cfg.Redis.Password},
		{"OMS_POSTGRES_DSN", &cfg.Postgres.DSN},
		{"OMS_SAGALOG_PATH", &cfg.SagaLog.Path},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint},
		{"OMS_LOG_LEVEL", &cfg.Telemetry.LogLevel},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	if v := getenv("OMS_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: OMS_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v := getenv("OMS_REDIS_IDEMPOTENCY_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: OMS_REDIS_IDEMPOTENCY_TTL: %w", err)
		}
		cfg.Redis.IdempotencyTTL = ttl
	}
	return nil
}

// Validate reports every missing required key at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Payment.BaseURL) == "" {
		errs = append(errs, errors.New("payment.baseUrl is required"))
	}
	if strings.TrimSpace(c.WMS.BaseURL) == "" {
		errs = append(errs, errors.New("wms.baseUrl is required"))
	}
	if c.Inventory.Addr == "" {
		errs = append(errs, errors.New("inventory.addr is required"))
	}
	if c.Redis.Addr != "" && c.Redis.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("redis.idempotencyTtl must be positive"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sampleRatio must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// DefaultIdempotencyLockTTL is used while a gateway has no timeout, since
// the duration of a create is then unbounded.
const DefaultIdempotencyLockTTL = 10 * time.Minute

// IdempotencyLockTTL is how long a create may hold its idempotency key: one
// payment call and five warehouse calls at their timeouts, plus a minute for
// the inventory calls and the commit.
func (c Config) IdempotencyLockTTL() time.Duration {
	if c.Payment.Timeout <= 0 || c.WMS.Timeout <= 0 {
		return DefaultIdempotencyLockTTL
	}
	return c.Payment.Timeout + 5*c.WMS.Timeout + time.Minute
}
