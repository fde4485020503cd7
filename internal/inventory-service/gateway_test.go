package inventoryservice_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	inventoryservice "github.com/jcmexdev/oms-sagas/internal/inventory-service"
	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
)

func startServer(t *testing.T, store *inventoryservice.Store) *inventoryservice.Gateway {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()))
	inventoryservice.RegisterInventoryServer(srv, inventoryservice.NewStoreServer(store))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := inventoryservice.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return inventoryservice.NewGateway(conn)
}

func orderWith(id string, items ...domain.OrderItem) domain.Order {
	return domain.Order{
		OrderID:  id,
		Customer: &domain.Customer{CustomerID: "C-1"},
		Items:    items,
	}
}

func line(productID string, qty int) domain.OrderItem {
	p := decimal.RequireFromString("1.00")
	return domain.OrderItem{ProductID: productID, Quantity: qty, Price: &p}
}

func TestGateway_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store := inventoryservice.NewStore(map[string]int32{"P-1": 5, "P-2": 1})
	gw := startServer(t, store)

	ok, err := gw.CheckAvailability(ctx, []domain.OrderItem{line("P-1", 3), line("P-2", 1)})
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := gw.ReserveItems(ctx, orderWith("ORD-1", line("P-1", 3), line("P-2", 1)))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "reserved 4 units for order ORD-1", res.Message)
	assert.Equal(t, int32(2), store.Available("P-1"))

	require.NoError(t, gw.ReleaseReservation(ctx, "ORD-1"))
	assert.Equal(t, int32(5), store.Available("P-1"))
	assert.Equal(t, int32(1), store.Available("P-2"))

	assert.Error(t, gw.ReleaseReservation(ctx, "ORD-1"), "second release finds nothing")
}

func TestGateway_Declined(t *testing.T) {
	ctx := context.Background()
	gw := startServer(t, inventoryservice.NewStore(map[string]int32{"P-1": 1}))

	ok, err := gw.CheckAvailability(ctx, []domain.OrderItem{line("P-1", 2)})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = gw.CheckAvailability(ctx, []domain.OrderItem{line("unknown", 1)})
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := gw.ReserveItems(ctx, orderWith("ORD-2", line("P-1", 2)))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient stock for P-1", res.Message)
}

func TestGateway_UnavailableTransport(t *testing.T) {
	lis := bufconn.Listen(1 << 10)
	require.NoError(t, lis.Close())

	conn, err := inventoryservice.Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = inventoryservice.NewGateway(conn).CheckAvailability(context.Background(), []domain.OrderItem{line("P-1", 1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInventoryUnavailable))
}
