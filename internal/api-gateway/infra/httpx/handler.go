package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

// OrderService is what the HTTP API needs from the order service.
type OrderService interface {
	Create(ctx context.Context, order domain.Order) (*domain.OrderCreationResult, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error)
}

type Handler struct {
	orders OrderService
}

func NewHandler(orders OrderService) *Handler {
	return &Handler{orders: orders}
}

// CreateOrder runs the create-order saga and answers 201 with the composite
// result and a Location header.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "malformed order payload: "+err.Error())
		return
	}

	result, err := h.orders.Create(r.Context(), order)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/orders/"+result.Order.OrderID)
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "UP"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
