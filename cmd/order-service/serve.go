package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jcmexdev/oms-sagas/internal/api-gateway/infra/httpx"
	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog/sqlite"
	inventoryservice "github.com/jcmexdev/oms-sagas/internal/inventory-service"
	"github.com/jcmexdev/oms-sagas/internal/order-service/adapters/registry/memory"
	"github.com/jcmexdev/oms-sagas/internal/order-service/adapters/registry/postgres"
	"github.com/jcmexdev/oms-sagas/internal/order-service/app"
	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	paymentservice "github.com/jcmexdev/oms-sagas/internal/payment-service/app"
	"github.com/jcmexdev/oms-sagas/internal/pkg/cache"
	"github.com/jcmexdev/oms-sagas/internal/pkg/config"
	"github.com/jcmexdev/oms-sagas/internal/pkg/messaging"
	"github.com/jcmexdev/oms-sagas/internal/pkg/telemetry"
	wmsservice "github.com/jcmexdev/oms-sagas/internal/wms-service/app"
)

const serviceName = "order-service"

func newServeCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the order HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path, os.Getenv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the sample orders on startup")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, seed bool) error {
	telemetry.InitLogger(os.Stdout, cfg.Telemetry.LogLevel, serviceName)

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName, telemetry.TracerConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.Telemetry.Environment,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialise tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	registry, closeRegistry, err := openRegistry(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer closeRegistry()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts := []app.Option{
		app.WithMetrics(telemetry.NewSagaMetrics(reg)),
		app.WithPaymentDefaults(cfg.Payment.Currency, cfg.Payment.Method),
	}

	if cfg.SagaLog.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SagaLog.Path), 0o755); err != nil {
			return fmt.Errorf("create saga log directory: %w", err)
		}
		sagaLog, err := sqlite.Open(cfg.SagaLog.Path)
		if err != nil {
			return err
		}
		defer sagaLog.Close()
		opts = append(opts, app.WithSagaLog(sagaLog))
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := messaging.Dial(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.OrdersQueue, cfg.RabbitMQ.StatusQueue)
		if err != nil {
			return err
		}
		defer conn.Close()
		opts = append(opts, app.WithPublisher(messaging.NewOrderPublisher(conn, cfg.RabbitMQ.OrdersQueue)))

		deliveries, err := conn.Consume(ctx, cfg.RabbitMQ.StatusQueue, serviceName, 10)
		if err != nil {
			return err
		}
		go func() {
			if err := messaging.NewStatusListener(messaging.LogStatus).Listen(ctx, deliveries); err != nil {
				slog.Error("status listener stopped", "error", err)
			}
		}()
	} else {
		slog.Info("rabbitmq disabled, order events are not published")
	}

	invConn, err := inventoryservice.Dial(cfg.Inventory.Addr)
	if err != nil {
		return err
	}
	defer invConn.Close()

	svc := app.NewService(
		registry,
		inventoryservice.NewGateway(invConn),
		paymentservice.NewGateway(cfg.Payment.BaseURL, &http.Client{Timeout: cfg.Payment.Timeout}),
		wmsservice.NewGateway(cfg.WMS.BaseURL, &http.Client{Timeout: cfg.WMS.Timeout}),
		opts...,
	)

	if seed {
		n, err := svc.Seed(ctx, domain.SampleOrders())
		if err != nil {
			return fmt.Errorf("seed orders: %w", err)
		}
		slog.Info("sample orders loaded", "count", n)
	}

	routerOpts := []httpx.RouterOption{httpx.WithMetrics(reg)}
	if cfg.Redis.Addr != "" {
		c := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "order")
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, idempotent replay degraded", "error", err)
		}
		routerOpts = append(routerOpts, httpx.WithIdempotency(c, cfg.Redis.IdempotencyTTL, cfg.IdempotencyLockTTL()))
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpx.NewRouter(httpx.NewHandler(svc), routerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("order service HTTP running", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRegistry(ctx context.Context, cfg config.PostgresConfig) (domain.Registry, func(), error) {
	if cfg.DSN == "" {
		slog.Info("postgres disabled, orders are kept in memory")
		return memory.NewRegistry(), func() {}, nil
	}
	registry, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return registry, registry.Close, nil
}
