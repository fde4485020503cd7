package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	inventoryservice "github.com/jcmexdev/oms-sagas/internal/inventory-service"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
	"github.com/jcmexdev/oms-sagas/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger(os.Stdout, getEnv("OMS_LOG_LEVEL", "info"), "inventory-service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "inventory-service"), telemetry.TracerConfig{
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

	addr := ":" + getEnv("PORT", "50051")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	store := inventoryservice.NewStore(inventoryservice.DefaultStock())
	inventoryservice.RegisterInventoryServer(grpcServer, inventoryservice.NewStoreServer(store))

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		grpcServer.GracefulStop()
	}()

	slog.Info("inventory service gRPC running", "addr", addr)
	if err := grpcServer.Serve(lis); err != nil {
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
