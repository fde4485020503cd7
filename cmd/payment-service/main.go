package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	paymentservice "github.com/jcmexdev/oms-sagas/internal/payment-service/app"
	"github.com/jcmexdev/oms-sagas/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger(os.Stdout, getEnv("OMS_LOG_LEVEL", "info"), "payment-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "payment-service"), telemetry.TracerConfig{
		Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	limit, err := decimal.NewFromString(getEnv("PAYMENT_LIMIT", "1000.00"))
	if err != nil {
		slog.Error("invalid PAYMENT_LIMIT", "error", err)
		os.Exit(1)
	}

	addr := ":" + getEnv("PORT", "8081")
	server := &http.Server{
		Addr:              addr,
		Handler:           paymentservice.NewProvider(limit).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("payment provider HTTP running", "addr", addr, "limit", limit.StringFixed(2))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
