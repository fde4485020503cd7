// Package rest is the small JSON-over-HTTP client shared by the payment and
// warehouse gateways.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

const HeaderIdempotencyKey = constants.HeaderIdempotencyKey

// ResponseError is a non-2xx answer. Status is 0 when no response arrived.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client rooted at baseURL. A nil hc gets a client without
// a timeout; calls are bounded only by the request context.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// PostJSON sends body to path and decodes a 2xx answer into out. The
// Idempotency-Key header is only sent when idempotencyKey is not empty.
// Any failure is returned as *ResponseError.
func (c *Client) PostJSON(ctx context.Context, path string, body any, idempotencyKey string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rest: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rest: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}
	if id := interceptors.GetMetadataValue(ctx, constants.HeaderXRequestId); id != "" {
		req.Header.Set(constants.HeaderXRequestId, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &ResponseError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ResponseError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ExtractMessage(raw)
		if strings.TrimSpace(msg) == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &ResponseError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ResponseError{Status: http.StatusBadGateway, Message: fmt.Sprintf("decode %s response: %v", path, err)}
	}
	return nil
}

// ExtractMessage picks the most useful text out of an error body: the JSON
// "message" field, then "error", then the raw body.
func ExtractMessage(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil {
		for _, key := range []string{"message", "error"} {
			if v, ok := doc[key]; ok && v != nil {
				if s, ok := v.(string); ok {
					return s
				}
				b, _ := json.Marshal(v)
				return string(b)
			}
		}
	}
	return string(body)
}
