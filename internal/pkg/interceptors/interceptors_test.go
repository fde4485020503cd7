package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

func TestUnaryClientInterceptor_ForwardsRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")

	var seen metadata.MD
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		seen, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}

	err := UnaryClientInterceptor()(ctx, "/inventory.InventoryService/ReserveItems", nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, seen.Get(constants.HeaderXRequestId))
	assert.Empty(t, seen.Get(constants.HeaderXIdempotencyKey))
}

func TestTraceServerInterceptor_PopulatesContext(t *testing.T) {
	md := metadata.Pairs(constants.HeaderXRequestId, "req-7", constants.HeaderXIdempotencyKey, "ORD-1")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var requestID, key string
	handler := func(ctx context.Context, req any) (any, error) {
		requestID = GetMetadataValue(ctx, constants.HeaderXRequestId)
		key = GetMetadataValue(ctx, constants.HeaderXIdempotencyKey)
		return "ok", nil
	}

	out, err := TraceServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "req-7", requestID)
	assert.Equal(t, "ORD-1", key)
}

func TestGetMetadataValue_Missing(t *testing.T) {
	assert.Empty(t, GetMetadataValue(context.Background(), constants.HeaderXRequestId))
}
