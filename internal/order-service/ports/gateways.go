// Package ports declares the remote services the create-order saga talks to.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

type InventoryGateway interface {
	// CheckAvailability is read-only. A transport failure is returned wrapped
	// around domain.ErrInventoryUnavailable.
	CheckAvailability(ctx context.Context, items []domain.OrderItem) (bool, error)
	ReserveItems(ctx context.Context, order domain.Order) (domain.Reservation, error)
	// ReleaseReservation is best effort; callers log and drop its error.
	ReleaseReservation(ctx context.Context, orderID string) error
}

type AuthorizeRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Method   string
}

type PaymentGateway interface {
	// Authorize fails with *domain.UpstreamError on a non-success answer.
	Authorize(ctx context.Context, req AuthorizeRequest, idempotencyKey string) (domain.PaymentResponse, error)
}

type FulfillmentGateway interface {
	// Fulfill runs the whole warehouse workflow and returns the answer of the
	// last step. There is no per-step resume: calling it again after a
	// partial failure starts over at "create fulfillment".
	Fulfill(ctx context.Context, order domain.Order, idempotencyKey string) (domain.FulfillmentResponse, error)
}

// EventPublisher announces committed orders. Errors are logged by the
// caller and never undo the commit.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, result domain.OrderCreationResult) error
}
