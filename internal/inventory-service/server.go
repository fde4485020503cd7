package inventoryservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/oms-sagas/internal/inventory-service/adapters/grpc/mappers"
)

const (
	ServiceName = "inventory.InventoryService"

	methodCheckAvailability  = "/" + ServiceName + "/CheckAvailability"
	methodReserveItems       = "/" + ServiceName + "/ReserveItems"
	methodReleaseReservation = "/" + ServiceName + "/ReleaseReservation"
)

// InventoryServer is the server side of inventory.InventoryService. Messages
// are google.protobuf.Struct values, so no generated stubs are involved.
type InventoryServer interface {
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReserveItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReleaseReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterInventoryServer mirrors what protoc-gen-go-grpc would emit.
func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: unaryHandler(methodCheckAvailability, InventoryServer.CheckAvailability)},
		{MethodName: "ReserveItems", Handler: unaryHandler(methodReserveItems, InventoryServer.ReserveItems)},
		{MethodName: "ReleaseReservation", Handler: unaryHandler(methodReleaseReservation, InventoryServer.ReleaseReservation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory.proto",
}

func unaryHandler(
	fullMethod string,
	call func(InventoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// StoreServer exposes a Store over gRPC.
type StoreServer struct {
	store *Store
}

var _ InventoryServer = (*StoreServer)(nil)

func NewStoreServer(store *Store) *StoreServer {
	return &StoreServer{store: store}
}

func (s *StoreServer) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items, err := mappers.StockItemsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return mappers.AvailabilityToStruct(s.store.CheckAvailability(ctx, items)), nil
}

func (s *StoreServer) ReserveItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	reserve, err := mappers.ReserveFromStruct(ctx, req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if reserve.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "orderId is required")
	}
	return mappers.ReserveResultToStruct(s.store.Reserve(ctx, reserve)), nil
}

func (s *StoreServer) ReleaseReservation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID := mappers.OrderIDFromStruct(req)
	if !s.store.Release(ctx, orderID) {
		return nil, status.Errorf(codes.NotFound, "no reservation for order %s", orderID)
	}
	return &structpb.Struct{}, nil
}
