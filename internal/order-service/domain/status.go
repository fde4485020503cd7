package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var knownStatuses = []Status{StatusCreated, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus accepts any casing of a known status name.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range knownStatuses {
		if candidate == known {
			return known, nil
		}
	}
	return "", &ValidationError{Message: fmt.Sprintf("unknown order status %q", s)}
}

// Cancel applies the cancel transition. CANCELLED is terminal, and an order
// that has left the warehouse can no longer be cancelled.
func Cancel(o Order) (Order, error) {
	switch o.Status {
	case StatusCancelled:
		return Order{}, &IllegalStateError{Message: "order already cancelled"}
	case StatusShipped, StatusDelivered:
		return Order{}, &IllegalStateError{Message: "order cannot be cancelled after shipment"}
	}
	return o.WithStatus(StatusCancelled), nil
}

// Transition overwrites the status with no transition-table check.
func Transition(o Order, next Status) Order {
	return o.WithStatus(next)
}
