package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/oms-sagas/internal/coordinator"
	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
)

const (
	DefaultCurrency = "EUR"
	DefaultMethod   = "CARD"
)

// Service owns the order registry and runs the create-order saga against
// the inventory, payment and warehouse services.
type Service struct {
	registry    domain.Registry
	inventory   ports.InventoryGateway
	payment     ports.PaymentGateway
	fulfillment ports.FulfillmentGateway

	publisher ports.EventPublisher
	sagaLog   sagalog.Repository
	metrics   coordinator.Metrics

	currency string
	method   string
	now      func() time.Time
	newUUID  func() uuid.UUID
}

type Option func(*Service)

// WithPublisher announces every committed order.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithSagaLog(repo sagalog.Repository) Option {
	return func(s *Service) { s.sagaLog = repo }
}

func WithMetrics(m coordinator.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPaymentDefaults sets the currency and method sent on authorization.
// Empty values keep the defaults.
func WithPaymentDefaults(currency, method string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
		if method != "" {
			s.method = method
		}
	}
}

// WithIDSource replaces the clock and random source used for order ids.
func WithIDSource(now func() time.Time, newUUID func() uuid.UUID) Option {
	return func(s *Service) {
		s.now = now
		s.newUUID = newUUID
	}
}

func NewService(
	registry domain.Registry,
	inventory ports.InventoryGateway,
	payment ports.PaymentGateway,
	fulfillment ports.FulfillmentGateway,
	opts ...Option,
) *Service {
	s := &Service{
		registry:    registry,
		inventory:   inventory,
		payment:     payment,
		fulfillment: fulfillment,
		currency:    DefaultCurrency,
		method:      DefaultMethod,
		now:         time.Now,
		newUUID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the order, checks stock, and runs the saga:
// reserve, authorize payment, fulfill, commit as PAID. Once stock is
// reserved, any failure releases it exactly once and the failing step's
// error is returned unchanged.
func (s *Service) Create(ctx context.Context, incoming domain.Order) (*domain.OrderCreationResult, error) {
	order := domain.Normalize(incoming)
	if err := domain.Validate(order); err != nil {
		return nil, err
	}

	available, err := s.inventory.CheckAvailability(ctx, order.Items)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &domain.ConflictError{Message: "inventory not available for requested items"}
	}

	order = order.WithOrderID(domain.NewOrderID(s.now(), s.newUUID()))
	slog.InfoContext(ctx, "creating order", "order_id", order.OrderID, "customer_id", order.Customer.CustomerID)

	reserve := coordinator.NewReserveInventoryStep(s.inventory, order)
	pay := coordinator.NewAuthorizePaymentStep(s.payment, order, s.currency, s.method)
	fulfill := coordinator.NewFulfillmentStep(s.fulfillment, order)
	commit := coordinator.NewCommitOrderStep(s.registry, order)

	saga := coordinator.NewOrchestrator(order.OrderID,
		[]coordinator.Step{reserve, pay, fulfill, commit},
		coordinator.WithSagaLog(s.sagaLog),
		coordinator.WithMetrics(s.metrics),
		coordinator.WithPayload(order),
	)
	if _, err := saga.Start(ctx); err != nil {
		return nil, err
	}

	result := &domain.OrderCreationResult{
		Order:              commit.Order(),
		ReservationMessage: reserve.Message(),
		Payment:            pay.Response(),
		Fulfillment:        fulfill.Response(),
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, *result); err != nil {
			slog.ErrorContext(ctx, "failed to publish order-created event",
				"order_id", order.OrderID, "error", err)
		}
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (domain.Order, error) {
	return s.registry.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.registry.List(ctx)
}

func (s *Service) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	return s.registry.ComputeIfPresent(ctx, orderID, domain.Cancel)
}

// UpdateStatus overwrites the status without consulting the cancel rules;
// it can move a DELIVERED order back to CREATED.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error) {
	return s.registry.ComputeIfPresent(ctx, orderID, func(o domain.Order) (domain.Order, error) {
		return domain.Transition(o, status), nil
	})
}

// Seed stores orders that are not yet present and returns how many were
// added.
func (s *Service) Seed(ctx context.Context, orders []domain.Order) (int, error) {
	added := 0
	for _, o := range orders {
		ok, err := s.registry.InsertIfAbsent(ctx, o)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}
