package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

// WithRequestID stores the id of the inbound HTTP request so outgoing gRPC
// calls can forward it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyIdempotencyKey, key)
}

// GetMetadataValue looks key up in the context values first, then in the
// incoming and outgoing gRPC metadata. It returns "" when absent.
func GetMetadataValue(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKeyFor(key)).(string); ok && v != "" {
		return v
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func contextKeyFor(key string) any {
	switch key {
	case constants.HeaderXRequestId:
		return constants.ContextKeyRequestID
	case constants.HeaderXIdempotencyKey:
		return constants.ContextKeyIdempotencyKey
	}
	return key
}

// UnaryClientInterceptor forwards the request id and idempotency key found
// in ctx as outgoing metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		for _, key := range []string{constants.HeaderXRequestId, constants.HeaderXIdempotencyKey} {
			if v, ok := ctx.Value(contextKeyFor(key)).(string); ok && v != "" {
				ctx = metadata.AppendToOutgoingContext(ctx, key, v)
			}
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
