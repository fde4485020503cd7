package wmsservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

// Fulfillment states walked by the in-memory Warehouse.
const (
	StatusCreated = "CREATED"
	StatusPicking = "PICKING"
	StatusPicked  = "PICKED"
	StatusPacked  = "PACKED"
	StatusShipped = "SHIPPED"
)

// Warehouse is an in-memory WMS for local runs. Each step only accepts the
// fulfillment in the state the previous step leaves it in.
type Warehouse struct {
	now func() time.Time

	mu           sync.Mutex
	fulfillments map[string]*domain.FulfillmentResponse
	seq          int
}

func NewWarehouse() *Warehouse {
	return &Warehouse{now: time.Now, fulfillments: make(map[string]*domain.FulfillmentResponse)}
}

func (wh *Warehouse) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(pathCreate, wh.create)
	r.Post(pathStartPicking, wh.advance(StatusCreated, StatusPicking, nil))
	r.Post(pathCompletePicking, wh.advance(StatusPicking, StatusPicked, nil))
	r.Post(pathPack, wh.advance(StatusPicked, StatusPacked, nil))
	r.Post(pathShip, wh.advance(StatusPacked, StatusShipped, wh.ship))
	return r
}

// Fulfillment returns a copy of the stored fulfillment for orderID.
func (wh *Warehouse) Fulfillment(orderID string) (domain.FulfillmentResponse, bool) {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	f, ok := wh.fulfillments[orderID]
	if !ok {
		return domain.FulfillmentResponse{}, false
	}
	return *f, true
}

func (wh *Warehouse) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid fulfillment request"})
		return
	}

	wh.mu.Lock()
	defer wh.mu.Unlock()

	if f, ok := wh.fulfillments[req.OrderID]; ok {
		writeJSON(w, http.StatusOK, f)
		return
	}
	now := wh.now().UTC()
	addr := req.Address
	f := &domain.FulfillmentResponse{
		OrderID:   req.OrderID,
		Status:    StatusCreated,
		Items:     req.Items,
		Address:   &addr,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	wh.fulfillments[req.OrderID] = f
	writeJSON(w, http.StatusCreated, f)
}

func (wh *Warehouse) ship(f *domain.FulfillmentResponse, body map[string]any) {
	wh.seq++
	if carrier, ok := body["carrier"].(string); ok {
		f.Carrier = carrier
	}
	f.TrackingNumber = fmt.Sprintf("TRK-%06d", wh.seq)
}

func (wh *Warehouse) advance(from, to string, apply func(*domain.FulfillmentResponse, map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
		orderID, _ := body["orderId"].(string)

		wh.mu.Lock()
		defer wh.mu.Unlock()

		f, ok := wh.fulfillments[orderID]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "fulfillment not found: " + orderID})
			return
		}
		if f.Status != from {
			writeJSON(w, http.StatusConflict, map[string]string{
				"message": fmt.Sprintf("fulfillment %s is %s, expected %s", orderID, f.Status, from),
			})
			return
		}
		if apply != nil {
			apply(f, body)
		}
		now := wh.now().UTC()
		f.Status = to
		f.UpdatedAt = &now
		writeJSON(w, http.StatusOK, f)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
