package app

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/oms-sagas/internal/order-service/adapters/registry/memory"
	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
)

// --- fakes ---

type fakeInventory struct {
	mu          sync.Mutex
	available   bool
	checkErr    error
	reservation domain.Reservation
	reserveErr  error
	releaseErr  error

	checks   int
	reserved []string
	released []string
}

func (f *fakeInventory) CheckAvailability(ctx context.Context, items []domain.OrderItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.available, f.checkErr
}

func (f *fakeInventory) ReserveItems(ctx context.Context, order domain.Order) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved = append(f.reserved, order.OrderID)
	return f.reservation, f.reserveErr
}

func (f *fakeInventory) ReleaseReservation(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, orderID)
	return f.releaseErr
}

type fakePayment struct {
	err      error
	requests []ports.AuthorizeRequest
	keys     []string
}

func (f *fakePayment) Authorize(ctx context.Context, req ports.AuthorizeRequest, key string) (domain.PaymentResponse, error) {
	f.requests = append(f.requests, req)
	f.keys = append(f.keys, key)
	if f.err != nil {
		return domain.PaymentResponse{}, f.err
	}
	return domain.PaymentResponse{OrderID: req.OrderID, Status: domain.PaymentAuthorized}, nil
}

type fakeFulfillment struct {
	err   error
	panic any
	calls int
}

func (f *fakeFulfillment) Fulfill(ctx context.Context, order domain.Order, key string) (domain.FulfillmentResponse, error) {
	f.calls++
	if f.panic != nil {
		panic(f.panic)
	}
	if f.err != nil {
		return domain.FulfillmentResponse{}, f.err
	}
	return domain.FulfillmentResponse{OrderID: order.OrderID, Status: "SHIPPED", Carrier: "DHL"}, nil
}

type fakePublisher struct {
	err     error
	results []domain.OrderCreationResult
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, r domain.OrderCreationResult) error {
	f.results = append(f.results, r)
	return f.err
}

// --- helpers ---

type fixture struct {
	svc       *Service
	registry  *memory.Registry
	inventory *fakeInventory
	payment   *fakePayment
	wms       *fakeFulfillment
	publisher *fakePublisher
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		registry:  memory.NewRegistry(),
		inventory: &fakeInventory{available: true, reservation: domain.Reservation{Success: true, Message: "reserved"}},
		payment:   &fakePayment{},
		wms:       &fakeFulfillment{},
		publisher: &fakePublisher{},
	}
	opts = append([]Option{WithPublisher(f.publisher)}, opts...)
	f.svc = NewService(f.registry, f.inventory, f.payment, f.wms, opts...)
	return f
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validOrder() domain.Order {
	return domain.Order{
		Customer: &domain.Customer{CustomerID: " C-1 ", Prename: "Ada", Name: "Lovelace"},
		Items: []domain.OrderItem{
			{ProductID: "P1", Quantity: 1, Price: money("1299.00")},
			{ProductID: "P2", Quantity: 2, Price: money("199.50")},
		},
		TotalAmount:     money("1698.00"),
		ShippingAddress: &domain.ShippingAddress{Street: "Main 1", City: "Karlsruhe", ZipCode: "76131", Country: "DE"},
	}
}

var orderIDPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}-[0-9A-F]{8}$`)

// --- Create ---

func TestCreate_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.svc.Create(ctx, validOrder())
	require.NoError(t, err)

	assert.Regexp(t, orderIDPattern, res.Order.OrderID)
	assert.Equal(t, domain.StatusPaid, res.Order.Status)
	assert.Equal(t, "C-1", res.Order.Customer.CustomerID)
	assert.Equal(t, "reserved", res.ReservationMessage)
	assert.Equal(t, domain.PaymentAuthorized, res.Payment.Status)
	assert.Equal(t, "DHL", res.Fulfillment.Carrier)

	stored, err := f.svc.Get(ctx, res.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.Len(t, f.payment.requests, 1)
	assert.Equal(t, res.Order.OrderID, f.payment.keys[0])
	assert.True(t, decimal.RequireFromString("1698").Equal(f.payment.requests[0].Amount))
	assert.Equal(t, DefaultCurrency, f.payment.requests[0].Currency)
	assert.Equal(t, DefaultMethod, f.payment.requests[0].Method)

	assert.Empty(t, f.inventory.released)
	require.Len(t, f.publisher.results, 1)
	assert.Equal(t, res.Order.OrderID, f.publisher.results[0].Order.OrderID)
}

func TestCreate_IDFromInjectedSource(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	id := uuid.MustParse("abcdef12-0000-4000-8000-000000000000")
	f := newFixture(WithIDSource(func() time.Time { return now }, func() uuid.UUID { return id }))

	res, err := f.svc.Create(context.Background(), validOrder())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240305-140709-ABCDEF12", res.Order.OrderID)
	assert.Equal(t, []string{"ORD-20240305-140709-ABCDEF12"}, f.inventory.reserved)
}

func TestCreate_TotalMismatchIsValidationError(t *testing.T) {
	f := newFixture()
	order := validOrder()
	order.TotalAmount = money("1700.00")

	_, err := f.svc.Create(context.Background(), order)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "totalAmount mismatch: provided=1700.00, calculated=1698.00", ve.Message)
	assert.Zero(t, f.inventory.checks, "validation happens before any remote call")
}

func TestCreate_UnavailableIsConflict(t *testing.T) {
	f := newFixture()
	f.inventory.available = false

	_, err := f.svc.Create(context.Background(), validOrder())

	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "inventory not available for requested items", ce.Message)
	assert.Empty(t, f.inventory.reserved)
	assert.Empty(t, f.payment.requests)
	assert.Zero(t, f.wms.calls)
}

func TestCreate_InventoryTransportFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.inventory.checkErr = errors.Join(domain.ErrInventoryUnavailable, errors.New("connection refused"))

	_, err := f.svc.Create(context.Background(), validOrder())

	assert.ErrorIs(t, err, domain.ErrInventoryUnavailable)
	var ce *domain.ConflictError
	assert.False(t, errors.As(err, &ce))
	assert.Empty(t, f.inventory.reserved)
}

func TestCreate_DeclinedReservation(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"with message", "PRD-1 out of stock", "PRD-1 out of stock"},
		{"blank message", "", "inventory reservation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.inventory.reservation = domain.Reservation{Success: false, Message: tt.message}

			_, err := f.svc.Create(context.Background(), validOrder())

			var ce *domain.ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.want, ce.Message)
			assert.Empty(t, f.payment.requests)
			assert.Zero(t, f.wms.calls)
			assert.Empty(t, f.inventory.released)
		})
	}
}

func TestCreate_PaymentFailureReleasesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payErr := domain.NewUpstreamError("payment", http.StatusPaymentRequired, "card declined")
	f.payment.err = payErr

	_, err := f.svc.Create(ctx, validOrder())

	assert.Same(t, payErr, err)
	require.Len(t, f.inventory.reserved, 1)
	assert.Equal(t, f.inventory.reserved, f.inventory.released)
	assert.Zero(t, f.wms.calls)

	all, _ := f.svc.List(ctx)
	assert.Empty(t, all)
	assert.Empty(t, f.publisher.results)
}

func TestCreate_FulfillmentFailureReleasesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	wmsErr := domain.NewUpstreamError("fulfillment", http.StatusServiceUnavailable, "robot unavailable")
	f.wms.err = wmsErr
	f.inventory.releaseErr = errors.New("inventory down")

	_, err := f.svc.Create(ctx, validOrder())

	assert.Same(t, wmsErr, err, "a failing release never replaces the original error")
	assert.Len(t, f.inventory.released, 1)
	assert.Equal(t, f.inventory.reserved[0], f.inventory.released[0])

	all, _ := f.svc.List(ctx)
	assert.Empty(t, all)
}

func TestCreate_PanicAfterReservationReleases(t *testing.T) {
	f := newFixture()
	f.wms.panic = "nil map write"

	_, err := f.svc.Create(context.Background(), validOrder())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map write")
	assert.Len(t, f.inventory.released, 1)
}

func TestCreate_CancelledContextStillReleases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture()
	f.payment.err = context.Canceled
	cancel()

	_, err := f.svc.Create(ctx, validOrder())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.inventory.released, 1)
}

func TestCreate_PublishFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	res, err := f.svc.Create(ctx, validOrder())
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, res.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
}

func TestCreate_DuplicateIDIsConflictAndReleases(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.MustParse("00000001-0000-4000-8000-000000000000")
	f := newFixture(WithIDSource(func() time.Time { return now }, func() uuid.UUID { return id }))

	_, err := f.svc.Create(ctx, validOrder())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, validOrder())
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "order already exists: ORD-20240101-000000-00000001", ce.Message)
	assert.Len(t, f.inventory.released, 1)
}

func TestCreate_PaymentDefaultsFromConfig(t *testing.T) {
	f := newFixture(WithPaymentDefaults("USD", "PAYPAL"))

	_, err := f.svc.Create(context.Background(), validOrder())
	require.NoError(t, err)
	assert.Equal(t, "USD", f.payment.requests[0].Currency)
	assert.Equal(t, "PAYPAL", f.payment.requests[0].Method)
}

func TestCreate_WritesSagaLog(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "saga.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	f := newFixture(WithSagaLog(repo))
	f.payment.err = domain.NewUpstreamError("payment", http.StatusPaymentRequired, "declined")

	_, err = f.svc.Create(ctx, validOrder())
	require.Error(t, err)

	history, err := repo.History(ctx, f.inventory.reserved[0])
	require.NoError(t, err)
	var statuses []sagalog.Status
	for _, e := range history {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted,
		sagalog.StatusStepDone,
		sagalog.StatusCompensating,
		sagalog.StatusFailed,
	}, statuses)
	assert.Contains(t, history[0].Payload, f.inventory.reserved[0])
}

// --- lifecycle ---

func seeded(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	n, err := f.svc.Seed(context.Background(), domain.SampleOrders())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return f
}

func TestSeed_Idempotent(t *testing.T) {
	f := seeded(t)
	n, err := f.svc.Seed(context.Background(), domain.SampleOrders())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := seeded(t)

	o, err := f.svc.Cancel(ctx, "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	_, err = f.svc.Cancel(ctx, "ORD-1001")
	var ise *domain.IllegalStateError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "order already cancelled", ise.Message)

	_, err = f.svc.Cancel(ctx, "ORD-1002")
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "order cannot be cancelled after shipment", ise.Message)
	stored, _ := f.svc.Get(ctx, "ORD-1002")
	assert.Equal(t, domain.StatusShipped, stored.Status)

	_, err = f.svc.Cancel(ctx, "ORD-missing")
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestUpdateStatus_Permissive(t *testing.T) {
	ctx := context.Background()
	f := seeded(t)

	o, err := f.svc.UpdateStatus(ctx, "ORD-1003", domain.StatusCreated)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, o.Status, "even CANCELLED can be overwritten")

	_, err = f.svc.UpdateStatus(ctx, "ORD-missing", domain.StatusPaid)
	var nf *domain.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestGet_NotFound(t *testing.T) {
	_, err := newFixture().svc.Get(context.Background(), "ORD-404")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "order not found: ORD-404", nf.Error())
}
