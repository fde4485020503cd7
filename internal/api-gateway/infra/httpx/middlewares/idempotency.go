package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcmexdev/oms-sagas/internal/pkg/cache"
	"github.com/jcmexdev/oms-sagas/internal/pkg/interceptors/constants"
)

const (
	HeaderReplayed = "Idempotent-Replayed"

	operationCreateOrder = "create-order"
	defaultLockTTL       = 10 * time.Minute
)

type storedResponse struct {
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
	Body     []byte `json:"body"`
}

// Idempotency replays the stored 201 answer of a request that carried the
// same X-Idempotency-Key. Only successful creates are stored, so a failed
// attempt can be retried with the same key. A key that is still being
// processed answers 409 until the first request finishes or lockTTL
// expires. Cache failures disable replay for that request instead of
// failing it.
func Idempotency(c cache.Cache, ttl, lockTTL time.Duration) func(http.Handler) http.Handler {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(constants.HeaderXIdempotencyKey)
			if key == "" || c == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			cacheKey := c.GenerateKey(operationCreateOrder, key)

			raw, err := c.Get(ctx, cacheKey)
			if err != nil {
				slog.WarnContext(ctx, "idempotency cache unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if raw != "" {
				var stored storedResponse
				if err := json.Unmarshal([]byte(raw), &stored); err == nil {
					replay(w, stored)
					return
				}
				slog.WarnContext(ctx, "discarding unreadable idempotency entry", "key", cacheKey)
			}

			lockKey := cacheKey + ":lock"
			acquired, err := c.Acquire(ctx, lockKey, lockTTL)
			if err != nil {
				slog.WarnContext(ctx, "idempotency lock unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeConflict(w, "a request with this idempotency key is still in progress")
				return
			}
			// the saga keeps running after a client disconnect, so the
			// lock release and the stored answer must not depend on it
			detached := context.WithoutCancel(ctx)
			defer func() {
				if err := c.Delete(detached, lockKey); err != nil {
					slog.WarnContext(ctx, "failed to release idempotency lock", "error", err)
				}
			}()

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusCreated {
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:   rec.status,
				Location: rec.Header().Get("Location"),
				Body:     rec.body.Bytes(),
			})
			if err == nil {
				err = c.Set(detached, cacheKey, payload, ttl)
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to store idempotent response", "key", cacheKey, "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, stored storedResponse) {
	w.Header().Set("Content-Type", "application/json")
	if stored.Location != "" {
		w.Header().Set("Location", stored.Location)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func writeConflict(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"timestamp": time.Now().UTC(),
		"status":    http.StatusConflict,
		"error":     http.StatusText(http.StatusConflict),
		"message":   msg,
	})
}

// recorder copies the body while passing it through.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
