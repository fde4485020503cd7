package inventoryservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcmexdev/oms-sagas/internal/inventory-service/domain"
)

func TestStore_RepeatedProductsAreSummed(t *testing.T) {
	s := NewStore(map[string]int32{"P-1": 3})
	items := []domain.StockItem{{ProductID: "P-1", Quantity: 2}, {ProductID: "P-1", Quantity: 2}}
	assert.False(t, s.CheckAvailability(context.Background(), items))
}

func TestStore_SecondReservationForSameOrderRefused(t *testing.T) {
	ctx := context.Background()
	s := NewStore(map[string]int32{"P-1": 10})
	req := domain.Reserve{OrderID: "ORD-1", Items: []domain.StockItem{{ProductID: "P-1", Quantity: 1}}}

	assert.True(t, s.Reserve(ctx, req).Success)
	second := s.Reserve(ctx, req)
	assert.False(t, second.Success)
	assert.Equal(t, int32(9), s.Available("P-1"))
}

func TestStore_CopiesSeed(t *testing.T) {
	seed := map[string]int32{"P-1": 1}
	s := NewStore(seed)
	seed["P-1"] = 100
	assert.Equal(t, int32(1), s.Available("P-1"))
}
