package paymentservice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/pkg/rest"
)

// Provider is an in-memory payment provider for local runs. It declines any
// authorization above its limit and replays the stored answer for a repeated
// Idempotency-Key.
type Provider struct {
	limit decimal.Decimal
	now   func() time.Time

	mu       sync.Mutex
	payments map[string]domain.PaymentResponse
}

func NewProvider(limit decimal.Decimal) *Provider {
	return &Provider{
		limit:    limit,
		now:      time.Now,
		payments: make(map[string]domain.PaymentResponse),
	}
}

// Routes mounts the provider's endpoints.
func (p *Provider) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(authorizePath, p.authorize)
	return r
}

// Payment returns the stored authorization for orderID.
func (p *Provider) Payment(orderID string) (domain.PaymentResponse, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.payments[orderID]
	return res, ok
}

func (p *Provider) authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid payment request"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "orderId and amount are required"})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := r.Header.Get(rest.HeaderIdempotencyKey)
	if prev, ok := p.payments[key]; ok && key != "" {
		writeJSON(w, http.StatusOK, prev)
		return
	}

	if amount.GreaterThan(p.limit) {
		slog.InfoContext(r.Context(), "payment declined", "order_id", req.OrderID, "amount", amount.StringFixed(2))
		writeJSON(w, http.StatusPaymentRequired, map[string]string{
			"orderId": req.OrderID,
			"status":  string(domain.PaymentDeclined),
			"error":   "Payment Required",
			"message": "amount " + amount.StringFixed(2) + " exceeds limit " + p.limit.StringFixed(2),
		})
		return
	}

	now := p.now().UTC()
	res := domain.PaymentResponse{
		OrderID:   req.OrderID,
		Amount:    json.Number(amount.StringFixed(domain.MoneyScale)),
		Currency:  req.Currency,
		Method:    req.Method,
		Status:    domain.PaymentAuthorized,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	p.payments[req.OrderID] = res
	if key != "" && key != req.OrderID {
		p.payments[key] = res
	}
	slog.InfoContext(r.Context(), "payment authorized", "order_id", req.OrderID)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
