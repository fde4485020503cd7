package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInventoryUnavailable marks a failed call to the inventory service
// itself, as opposed to a negative availability answer.
var ErrInventoryUnavailable = errors.New("inventory service unavailable")

// ValidationError is a pre-flight failure; nothing was touched remotely.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError is a client-visible business refusal.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string { return "order not found: " + e.OrderID }

type IllegalStateError struct {
	Message string
}

func (e *IllegalStateError) Error() string { return e.Message }

// UpstreamError is a non-success answer from the payment or fulfillment
// service. Status is always a valid HTTP status code.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service error (%d): %s", e.Service, e.Status, e.Message)
}

// NewUpstreamError resolves status the same way for every REST gateway:
// anything that is not a real HTTP status becomes 502.
func NewUpstreamError(service string, status int, message string) *UpstreamError {
	if status < 100 || status > 599 {
		status = http.StatusBadGateway
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &UpstreamError{Service: service, Status: status, Message: message}
}
