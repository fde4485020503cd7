// Package mappers converts inventory requests and replies to and from
// google.protobuf.Struct, the message type used on the inventory wire.
package mappers

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/oms-sagas/internal/inventory-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

const (
	fieldOrderID    = "orderId"
	fieldCustomerID = "customerId"
	fieldItems      = "items"
	fieldProductID  = "productId"
	fieldQuantity   = "quantity"
	fieldAvailable  = "available"
	fieldSuccess    = "success"
	fieldMessage    = "message"
)

// ItemsToStruct builds a CheckAvailability request.
func ItemsToStruct(items []domain.StockItem) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{fieldItems: itemsToList(items)})
}

// ReserveToStruct builds a ReserveItems request.
func ReserveToStruct(r domain.Reserve) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldOrderID:    r.OrderID,
		fieldCustomerID: r.CustomerID,
		fieldItems:      itemsToList(r.Items),
	})
}

func OrderIDToStruct(orderID string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{fieldOrderID: orderID})
}

func itemsToList(items []domain.StockItem) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			fieldProductID: it.ProductID,
			fieldQuantity:  it.Quantity,
		}
	}
	return out
}

// StockItemsFromStruct reads the items list of a request.
func StockItemsFromStruct(s *structpb.Struct) ([]domain.StockItem, error) {
	list := s.GetFields()[fieldItems].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("mappers: %q must be a list", fieldItems)
	}
	items := make([]domain.StockItem, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("mappers: item %d is not an object", i)
		}
		items = append(items, domain.StockItem{
			ProductID: fields[fieldProductID].GetStringValue(),
			Quantity:  int32(fields[fieldQuantity].GetNumberValue()),
		})
	}
	return items, nil
}

// ReserveFromStruct reads a ReserveItems request. The request id comes from
// the call metadata, not the message.
func ReserveFromStruct(ctx context.Context, s *structpb.Struct) (domain.Reserve, error) {
	items, err := StockItemsFromStruct(s)
	if err != nil {
		return domain.Reserve{}, err
	}
	return domain.Reserve{
		OrderID:    OrderIDFromStruct(s),
		CustomerID: s.GetFields()[fieldCustomerID].GetStringValue(),
		Items:      items,
		RequestID:  interceptors.GetMetadataValue(ctx, constants.HeaderXRequestId),
	}, nil
}

func OrderIDFromStruct(s *structpb.Struct) string {
	return s.GetFields()[fieldOrderID].GetStringValue()
}

func AvailabilityToStruct(available bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldAvailable: structpb.NewBoolValue(available),
	}}
}

func AvailabilityFromStruct(s *structpb.Struct) bool {
	return s.GetFields()[fieldAvailable].GetBoolValue()
}

func ReserveResultToStruct(r domain.ReserveResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSuccess: structpb.NewBoolValue(r.Success),
		fieldMessage: structpb.NewStringValue(r.Message),
	}}
}

func ReserveResultFromStruct(s *structpb.Struct) domain.ReserveResult {
	return domain.ReserveResult{
		Success: s.GetFields()[fieldSuccess].GetBoolValue(),
		Message: s.GetFields()[fieldMessage].GetStringValue(),
	}
}
