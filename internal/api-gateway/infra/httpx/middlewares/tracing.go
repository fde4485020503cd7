package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata continues the caller's W3C trace in a server span
// and stores the chi request id and the idempotency key in the context, so
// gateway calls made while serving the request carry them along. It must run
// after middleware.RequestID.
func AttachTracingMetadata(next http.Handler) http.Handler {
	tracer := otel.Tracer("httpx")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		requestID := middleware.GetReqID(ctx)
		ctx = interceptors.WithRequestID(ctx, requestID)
		if key := r.Header.Get(constants.HeaderXIdempotencyKey); key != "" {
			ctx = interceptors.WithIdempotencyKey(ctx, key)
		}
		w.Header().Set(middleware.RequestIDHeader, requestID)

		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
			span.SetName(r.Method + " " + rctx.RoutePattern())
		}
		span.SetAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.Int("http.response.status_code", ww.Status()),
			attribute.String("request.id", requestID),
		)
		if ww.Status() >= 500 {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}
