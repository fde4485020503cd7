// Package inventoryservice holds both sides of the inventory gRPC contract:
// the Gateway used by the order service and an in-memory stock Store served
// by cmd/inventory-service for local runs and tests.
package inventoryservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jcmexdev/oms-sagas/internal/inventory-service/domain"
)

// Store is an in-memory stock table. Reservations are keyed by order id; a
// second reservation for the same order is refused.
type Store struct {
	mu           sync.Mutex
	stock        map[string]int32
	reservations map[string][]domain.StockItem
}

func NewStore(stock map[string]int32) *Store {
	s := &Store{
		stock:        make(map[string]int32, len(stock)),
		reservations: make(map[string][]domain.StockItem),
	}
	for id, qty := range stock {
		s.stock[id] = qty
	}
	return s
}

// DefaultStock covers the products of the sample orders.
func DefaultStock() map[string]int32 {
	return map[string]int32{
		"PRD-101": 25,
		"PRD-205": 40,
		"PRD-310": 120,
		"PRD-311": 80,
		"PRD-450": 15,
		"PRD-808": 10,
		"PRD-999": 0,
	}
}

func (s *Store) CheckAvailability(ctx context.Context, items []domain.StockItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missing(items) == ""
}

func (s *Store) Reserve(ctx context.Context, req domain.Reserve) domain.ReserveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.reservations[req.OrderID]; held {
		return domain.ReserveResult{Message: fmt.Sprintf("order %s already holds a reservation", req.OrderID)}
	}
	if productID := s.missing(req.Items); productID != "" {
		slog.InfoContext(ctx, "reservation declined",
			"order_id", req.OrderID, "product_id", productID, "request_id", req.RequestID)
		return domain.ReserveResult{Message: "insufficient stock for " + productID}
	}

	var units int32
	for _, it := range req.Items {
		s.stock[it.ProductID] -= it.Quantity
		units += it.Quantity
	}
	s.reservations[req.OrderID] = append([]domain.StockItem(nil), req.Items...)

	slog.InfoContext(ctx, "reservation stored",
		"order_id", req.OrderID, "units", units, "request_id", req.RequestID)
	return domain.ReserveResult{
		Success: true,
		Message: fmt.Sprintf("reserved %d units for order %s", units, req.OrderID),
	}
}

// Release restores the stock held for orderID. It reports false when there
// was nothing to release.
func (s *Store) Release(ctx context.Context, orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.reservations[orderID]
	if !ok {
		slog.WarnContext(ctx, "no reservation to release", "order_id", orderID)
		return false
	}
	for _, it := range items {
		s.stock[it.ProductID] += it.Quantity
	}
	delete(s.reservations, orderID)
	slog.InfoContext(ctx, "reservation released", "order_id", orderID)
	return true
}

// Available returns the free quantity of productID.
func (s *Store) Available(productID string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

// missing returns the first product that cannot be served, or "".
// Quantities of repeated products are summed. Callers hold s.mu.
func (s *Store) missing(items []domain.StockItem) string {
	need := make(map[string]int32, len(items))
	for _, it := range items {
		need[it.ProductID] += it.Quantity
	}
	for _, it := range items {
		have, ok := s.stock[it.ProductID]
		if !ok || have < need[it.ProductID] {
			return it.ProductID
		}
	}
	return ""
}
