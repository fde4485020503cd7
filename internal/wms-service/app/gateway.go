// Package wmsservice drives the warehouse management system through its
// fulfillment workflow: create, start picking, complete picking, pack, ship.
package wmsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf16"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
	"github.com/jcmexdev/oms-sagas/internal/pkg/rest"
)

const (
	serviceName = "fulfillment"

	pathCreate          = "/wms/fulfillments"
	pathStartPicking    = "/wms/fulfillments/start-picking"
	pathCompletePicking = "/wms/fulfillments/complete-picking"
	pathPack            = "/wms/fulfillments/pack"
	pathShip            = "/wms/fulfillments/ship"

	DefaultCarrier = "DHL"
)

type createRequest struct {
	OrderID string                    `json:"orderId"`
	Items   []domain.FulfillmentItem  `json:"items"`
	Address domain.FulfillmentAddress `json:"address"`
}

type startPickingRequest struct {
	OrderID  string `json:"orderId"`
	Assignee string `json:"assignee"`
}

type completePickingRequest struct {
	OrderID string `json:"orderId"`
}

type packRequest struct {
	OrderID    string `json:"orderId"`
	Weight     int    `json:"weight"`
	Dimensions string `json:"dimensions"`
}

type shipRequest struct {
	OrderID string `json:"orderId"`
	Carrier string `json:"carrier"`
}

type Gateway struct {
	client *rest.Client
}

var _ ports.FulfillmentGateway = (*Gateway)(nil)

// NewGateway returns a gateway rooted at baseURL. hc may be nil.
func NewGateway(baseURL string, hc *http.Client) *Gateway {
	return &Gateway{client: rest.New(baseURL, hc)}
}

// Fulfill runs all five steps in order and returns the answer of the ship
// step. Only the create step carries the idempotency key, so a repeated call
// after a partial failure starts over at create.
func (g *Gateway) Fulfill(ctx context.Context, order domain.Order, idempotencyKey string) (domain.FulfillmentResponse, error) {
	if order.ShippingAddress == nil {
		return domain.FulfillmentResponse{}, &domain.ValidationError{Message: "shipping address required for fulfillment"}
	}
	slog.InfoContext(ctx, "starting warehouse fulfillment", "order_id", order.OrderID)

	steps := []struct {
		path string
		body any
		key  string
	}{
		{pathCreate, newCreateRequest(order), idempotencyKey},
		{pathStartPicking, startPickingRequest{OrderID: order.OrderID, Assignee: PickAssignee(order.OrderID)}, ""},
		{pathCompletePicking, completePickingRequest{OrderID: order.OrderID}, ""},
		{pathPack, packRequest{OrderID: order.OrderID, Weight: EstimateWeight(order.Items), Dimensions: EstimateDimensions(order.Items)}, ""},
		{pathShip, shipRequest{OrderID: order.OrderID, Carrier: DefaultCarrier}, ""},
	}

	var res domain.FulfillmentResponse
	for _, step := range steps {
		res = domain.FulfillmentResponse{}
		if err := g.client.PostJSON(ctx, step.path, step.body, step.key, &res); err != nil {
			slog.ErrorContext(ctx, "warehouse step failed", "order_id", order.OrderID, "path", step.path, "error", err)
			return domain.FulfillmentResponse{}, upstreamError(err)
		}
	}

	slog.InfoContext(ctx, "warehouse fulfillment finished", "order_id", order.OrderID, "status", res.Status)
	return res, nil
}

func newCreateRequest(order domain.Order) createRequest {
	items := make([]domain.FulfillmentItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = domain.FulfillmentItem{ProductID: it.ProductID, ProductName: it.ProductID, Quantity: it.Quantity}
	}
	addr := order.ShippingAddress
	return createRequest{
		OrderID: order.OrderID,
		Items:   items,
		Address: domain.FulfillmentAddress{
			RecipientName: order.Customer.RecipientName(),
			Street:        addr.Street,
			PostalCode:    addr.ZipCode,
			City:          addr.City,
			Country:       addr.Country,
		},
	}
}

// PickAssignee spreads orders over a hundred picking robots by the 32-bit
// string hash the warehouse already keys on.
func PickAssignee(orderID string) string {
	n := javaStringHash(orderID) % 100
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("robot-%d", n)
}

// javaStringHash is s[0]*31^(n-1) + ... + s[n-1] over UTF-16 code units with
// int32 overflow.
func javaStringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// EstimateWeight counts every line as at least one unit.
func EstimateWeight(items []domain.OrderItem) int {
	total := 0
	for _, it := range items {
		total += max(1, it.Quantity)
	}
	return total
}

func EstimateDimensions(items []domain.OrderItem) string {
	return fmt.Sprintf("%d items", len(items))
}

func upstreamError(err error) error {
	var re *rest.ResponseError
	if errors.As(err, &re) {
		return domain.NewUpstreamError(serviceName, re.Status, re.Message)
	}
	return domain.NewUpstreamError(serviceName, 0, err.Error())
}
