package domain

import "context"

// MutateFunc computes the replacement for a stored order. Returning an error
// leaves the stored value unchanged.
type MutateFunc func(current Order) (Order, error)

// Registry is the keyed order store. Implementations must make
// InsertIfAbsent atomic and ComputeIfPresent an atomic read-modify-write per
// key.
type Registry interface {
	// InsertIfAbsent stores o under o.OrderID and reports false when the key
	// was already taken.
	InsertIfAbsent(ctx context.Context, o Order) (bool, error)
	// ComputeIfPresent returns *NotFoundError when id is unknown.
	ComputeIfPresent(ctx context.Context, id string, fn MutateFunc) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
}
