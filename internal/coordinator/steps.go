package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
)

const defaultReservationDeclined = "inventory reservation failed"

// --- ReserveInventoryStep ---

// ReserveInventoryStep holds stock for the order. It is the only step with
// a compensation: releasing the reservation.
type ReserveInventoryStep struct {
	client  ports.InventoryGateway
	order   domain.Order
	message string
}

func NewReserveInventoryStep(client ports.InventoryGateway, order domain.Order) *ReserveInventoryStep {
	return &ReserveInventoryStep{client: client, order: order}
}

func (s *ReserveInventoryStep) Name() string { return "Inventory_Reservation_Step" }

// Execute turns a declined reservation into a conflict. Nothing is held in
// that case, so the step is not registered for compensation.
func (s *ReserveInventoryStep) Execute(ctx context.Context) error {
	res, err := s.client.ReserveItems(ctx, s.order)
	if err != nil {
		return fmt.Errorf("inventory reservation for order %s: %w", s.order.OrderID, err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = defaultReservationDeclined
		}
		return &domain.ConflictError{Message: msg}
	}
	s.message = res.Message
	return nil
}

func (s *ReserveInventoryStep) Compensate(ctx context.Context) error {
	return s.client.ReleaseReservation(ctx, s.order.OrderID)
}

// Message is the acknowledgement text of a successful reservation.
func (s *ReserveInventoryStep) Message() string { return s.message }

// --- AuthorizePaymentStep ---

type AuthorizePaymentStep struct {
	client   ports.PaymentGateway
	request  ports.AuthorizeRequest
	response domain.PaymentResponse
}

// NewAuthorizePaymentStep always keys the authorization on the order id, so
// repeated calls for one order have at most one financial effect.
func NewAuthorizePaymentStep(client ports.PaymentGateway, order domain.Order, currency, method string) *AuthorizePaymentStep {
	return &AuthorizePaymentStep{
		client: client,
		request: ports.AuthorizeRequest{
			OrderID:  order.OrderID,
			Amount:   *order.TotalAmount,
			Currency: currency,
			Method:   method,
		},
	}
}

func (s *AuthorizePaymentStep) Name() string { return "Payment_Authorization_Step" }

// Execute returns the gateway error as is so callers can inspect it.
func (s *AuthorizePaymentStep) Execute(ctx context.Context) error {
	res, err := s.client.Authorize(ctx, s.request, s.request.OrderID)
	if err != nil {
		return err
	}
	s.response = res
	return nil
}

func (s *AuthorizePaymentStep) Response() domain.PaymentResponse { return s.response }

// --- FulfillmentStep ---

type FulfillmentStep struct {
	client   ports.FulfillmentGateway
	order    domain.Order
	response domain.FulfillmentResponse
}

func NewFulfillmentStep(client ports.FulfillmentGateway, order domain.Order) *FulfillmentStep {
	return &FulfillmentStep{client: client, order: order}
}

func (s *FulfillmentStep) Name() string { return "Warehouse_Fulfillment_Step" }

func (s *FulfillmentStep) Execute(ctx context.Context) error {
	res, err := s.client.Fulfill(ctx, s.order, s.order.OrderID)
	if err != nil {
		return err
	}
	s.response = res
	return nil
}

func (s *FulfillmentStep) Response() domain.FulfillmentResponse { return s.response }

// --- CommitOrderStep ---

// CommitOrderStep marks the order PAID and writes it to the registry. It is
// the last step, so it has nothing to compensate.
type CommitOrderStep struct {
	registry  domain.Registry
	order     domain.Order
	committed domain.Order
}

func NewCommitOrderStep(registry domain.Registry, order domain.Order) *CommitOrderStep {
	return &CommitOrderStep{registry: registry, order: order}
}

func (s *CommitOrderStep) Name() string { return "Commit_Order_Step" }

func (s *CommitOrderStep) Execute(ctx context.Context) error {
	paid := s.order.WithStatus(domain.StatusPaid)
	inserted, err := s.registry.InsertIfAbsent(ctx, paid)
	if err != nil {
		return fmt.Errorf("commit order %s: %w", paid.OrderID, err)
	}
	if !inserted {
		return &domain.ConflictError{Message: "order already exists: " + paid.OrderID}
	}
	s.committed = paid
	return nil
}

func (s *CommitOrderStep) Order() domain.Order { return s.committed }
