package domain

import (
	"encoding/json"
	"time"
)

// Reservation is the inventory answer to a reserve request. Success=false is
// a business refusal, not a transport failure.
type Reservation struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentDeclined   PaymentStatus = "DECLINED"
)

type PaymentResponse struct {
	OrderID   string        `json:"orderId"`
	Amount    json.Number   `json:"amount,omitempty"`
	Currency  string        `json:"currency,omitempty"`
	Method    string        `json:"method,omitempty"`
	Status    PaymentStatus `json:"status,omitempty"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

type FulfillmentItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

type FulfillmentAddress struct {
	RecipientName string `json:"recipientName"`
	Street        string `json:"street"`
	PostalCode    string `json:"postalCode"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

type FulfillmentResponse struct {
	OrderID        string              `json:"orderId"`
	Status         string              `json:"status,omitempty"`
	Items          []FulfillmentItem   `json:"items,omitempty"`
	TrackingNumber string              `json:"trackingNumber,omitempty"`
	Carrier        string              `json:"carrier,omitempty"`
	Address        *FulfillmentAddress `json:"address,omitempty"`
	CreatedAt      *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time          `json:"updatedAt,omitempty"`
}

// OrderCreationResult is handed out once per successful create and never
// modified afterwards.
type OrderCreationResult struct {
	Order              Order               `json:"order"`
	ReservationMessage string              `json:"reservationMessage"`
	Payment            PaymentResponse     `json:"payment"`
	Fulfillment        FulfillmentResponse `json:"fulfillment"`
}
