package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9090"
payment:
  baseUrl: http://payments:8081
  currency: USD
  timeout: 5s
wms:
  baseUrl: http://wms:8082
redis:
  addr: redis:6379
  idempotencyTtl: 1h
`)

	cfg, err := Load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "http://payments:8081", cfg.Payment.BaseURL)
	assert.Equal(t, "USD", cfg.Payment.Currency)
	assert.Equal(t, "CARD", cfg.Payment.Method, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, "localhost:50051", cfg.Inventory.Addr)
	assert.Equal(t, "orders.queue", cfg.RabbitMQ.OrdersQueue)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "payment:\n  baseUrl: http://file\nwms:\n  baseUrl: http://file-wms\n")

	cfg, err := Load(path, env(map[string]string{
		"OMS_PAYMENT_BASE_URL":        "http://env",
		"OMS_REDIS_DB":                "3",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "http://otel:4317",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.Payment.BaseURL)
	assert.Equal(t, "http://file-wms", cfg.WMS.BaseURL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "http://otel:4317", cfg.Telemetry.OTLPEndpoint)
}

func TestLoad_EnvOnly(t *testing.T) {
	cfg, err := Load("", env(map[string]string{
		"OMS_PAYMENT_BASE_URL": "http://p",
		"OMS_WMS_BASE_URL":     "http://w",
	}))
	require.NoError(t, err)
	assert.Equal(t, "./data/saga.db", cfg.SagaLog.Path)
}

func TestLoad_RequiredBaseURLs(t *testing.T) {
	_, err := Load("", env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment.baseUrl is required")
	assert.Contains(t, err.Error(), "wms.baseUrl is required")
}

func TestLoad_BadValues(t *testing.T) {
	base := map[string]string{"OMS_PAYMENT_BASE_URL": "http://p", "OMS_WMS_BASE_URL": "http://w"}

	bad := map[string]string{"OMS_REDIS_DB": "three"}
	for k, v := range base {
		bad[k] = v
	}
	_, err := Load("", env(bad))
	assert.ErrorContains(t, err, "OMS_REDIS_DB")

	_, err = Load(writeFile(t, "http: [unclosed"), env(base))
	assert.ErrorContains(t, err, "parse")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), env(base))
	assert.ErrorContains(t, err, "read")
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "order-service.yaml"), env(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8081", cfg.Payment.BaseURL)
	assert.Equal(t, "http://localhost:8082", cfg.WMS.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 0)
}

func TestDefault_NoGatewayTimeouts(t *testing.T) {
	cfg := Default()

	assert.Zero(t, cfg.Payment.Timeout)
	assert.Zero(t, cfg.WMS.Timeout)
	assert.Equal(t, DefaultIdempotencyLockTTL, cfg.IdempotencyLockTTL())
}

func TestIdempotencyLockTTL_CoversEveryGatewayCall(t *testing.T) {
	cfg := Default()
	cfg.Payment.Timeout = 30 * time.Second
	cfg.WMS.Timeout = 30 * time.Second

	assert.Equal(t, 4*time.Minute, cfg.IdempotencyLockTTL())
}
