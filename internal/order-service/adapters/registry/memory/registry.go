// Package memory is the in-process order registry.
package memory

import (
	"context"
	"sync"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

var _ domain.Registry = (*Registry)(nil)

type Registry struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	// keys keeps insertion order so List is stable.
	keys []string
}

func NewRegistry() *Registry {
	return &Registry{orders: make(map[string]domain.Order)}
}

func (r *Registry) InsertIfAbsent(ctx context.Context, o domain.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.OrderID]; exists {
		return false, nil
	}
	r.orders[o.OrderID] = o.Clone()
	r.keys = append(r.keys, o.OrderID)
	return true, nil
}

// ComputeIfPresent holds the write lock for the whole read-modify-write, so
// concurrent mutations of one key are serialized and none is lost.
func (r *Registry) ComputeIfPresent(ctx context.Context, id string, fn domain.MutateFunc) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return domain.Order{}, &domain.NotFoundError{OrderID: id}
	}
	next, err := fn(current.Clone())
	if err != nil {
		return domain.Order{}, err
	}
	next.OrderID = id
	r.orders[id] = next.Clone()
	return next, nil
}

func (r *Registry) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, &domain.NotFoundError{OrderID: id}
	}
	return o.Clone(), nil
}

func (r *Registry) List(ctx context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.orders[k].Clone())
	}
	return out, nil
}
