package inventoryservice

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/oms-sagas/internal/inventory-service/adapters/grpc/mappers"
	invdomain "github.com/jcmexdev/oms-sagas/internal/inventory-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
)

// Gateway is the order service's client of inventory.InventoryService.
type Gateway struct {
	conn grpc.ClientConnInterface
}

var _ ports.InventoryGateway = (*Gateway)(nil)

// Dial connects to target over plaintext with tracing and request id
// propagation. Extra options are appended, which tests use for bufconn.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("inventory: dial %s: %w", target, err)
	}
	return conn, nil
}

func NewGateway(conn grpc.ClientConnInterface) *Gateway {
	return &Gateway{conn: conn}
}

func (g *Gateway) CheckAvailability(ctx context.Context, items []domain.OrderItem) (bool, error) {
	req, err := mappers.ItemsToStruct(toStockItems(items))
	if err != nil {
		return false, fmt.Errorf("inventory: encode availability request: %w", err)
	}
	reply := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, methodCheckAvailability, req, reply); err != nil {
		slog.ErrorContext(ctx, "inventory availability check failed", "error", err)
		return false, fmt.Errorf("%w: %w", domain.ErrInventoryUnavailable, err)
	}
	return mappers.AvailabilityFromStruct(reply), nil
}

func (g *Gateway) ReserveItems(ctx context.Context, order domain.Order) (domain.Reservation, error) {
	r := invdomain.Reserve{OrderID: order.OrderID, Items: toStockItems(order.Items)}
	if order.Customer != nil {
		r.CustomerID = order.Customer.CustomerID
	}
	req, err := mappers.ReserveToStruct(r)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("inventory: encode reserve request: %w", err)
	}
	reply := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, methodReserveItems, req, reply); err != nil {
		slog.ErrorContext(ctx, "inventory reservation failed", "order_id", order.OrderID, "error", err)
		return domain.Reservation{}, fmt.Errorf("inventory reservation failed: %w", err)
	}
	res := mappers.ReserveResultFromStruct(reply)
	return domain.Reservation{Success: res.Success, Message: res.Message}, nil
}

func (g *Gateway) ReleaseReservation(ctx context.Context, orderID string) error {
	req, err := mappers.OrderIDToStruct(orderID)
	if err != nil {
		return fmt.Errorf("inventory: encode release request: %w", err)
	}
	if err := g.conn.Invoke(ctx, methodReleaseReservation, req, new(structpb.Struct)); err != nil {
		return fmt.Errorf("inventory: release reservation for %s: %w", orderID, err)
	}
	slog.InfoContext(ctx, "released inventory reservation", "order_id", orderID)
	return nil
}

func toStockItems(items []domain.OrderItem) []invdomain.StockItem {
	out := make([]invdomain.StockItem, len(items))
	for i, it := range items {
		out[i] = invdomain.StockItem{ProductID: it.ProductID, Quantity: int32(it.Quantity)}
	}
	return out
}
