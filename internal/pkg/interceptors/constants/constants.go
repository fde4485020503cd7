// Package constants names the headers and metadata keys that carry request
// identity between the order service and its downstream services.
package constants

type contextKey string

const (
	// HeaderXRequestId is the HTTP header and gRPC metadata key of the
	// request id.
	HeaderXRequestId = "x-request-id"
	// HeaderXIdempotencyKey is the client's key on POST /orders and the
	// metadata key forwarded to the inventory service.
	HeaderXIdempotencyKey = "x-idempotency-key"
	// HeaderIdempotencyKey is the key the payment and warehouse APIs expect.
	HeaderIdempotencyKey = "Idempotency-Key"

	ContextKeyRequestID      contextKey = HeaderXRequestId
	ContextKeyIdempotencyKey contextKey = HeaderXIdempotencyKey
)
