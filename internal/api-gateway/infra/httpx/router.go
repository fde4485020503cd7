package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcmexdev/oms-sagas/internal/api-gateway/infra/httpx/middlewares"
	"github.com/jcmexdev/oms-sagas/internal/pkg/cache"
)

type RouterOption func(*routerConfig)

type routerConfig struct {
	cache          cache.Cache
	idempotencyTTL time.Duration
	lockTTL        time.Duration
	gatherer       prometheus.Gatherer
}

// WithIdempotency replays successful creates that repeat an
// X-Idempotency-Key for ttl. lockTTL bounds how long a running create holds
// its key.
func WithIdempotency(c cache.Cache, ttl, lockTTL time.Duration) RouterOption {
	return func(cfg *routerConfig) {
		cfg.cache = c
		cfg.idempotencyTTL = ttl
		cfg.lockTTL = lockTTL
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) RouterOption {
	return func(cfg *routerConfig) { cfg.gatherer = g }
}

func NewRouter(handler *Handler, opts ...RouterOption) http.Handler {
	cfg := routerConfig{idempotencyTTL: 24 * time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/orders", func(r chi.Router) {
		r.With(middlewares.Idempotency(cfg.cache, cfg.idempotencyTTL, cfg.lockTTL)).Post("/", handler.CreateOrder)
		r.Get("/", handler.ListOrders)
		r.Get("/{orderId}", handler.GetOrder)
		r.Post("/{orderId}/cancel", handler.CancelOrder)
		r.Post("/{orderId}/status/{status}", handler.UpdateStatus)
		r.Put("/{orderId}/status/{status}", handler.UpdateStatus)
	})

	r.Get("/healthz", handler.Health)
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
