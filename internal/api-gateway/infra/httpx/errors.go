package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		upstream   *domain.UpstreamError
		notFound   *domain.NotFoundError
		illegal    *domain.IllegalStateError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &upstream):
		if upstream.Status < 100 || upstream.Status > 599 {
			return http.StatusBadGateway
		}
		return upstream.Status
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &illegal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInventoryUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// messageFor keeps typed errors verbatim and hides internals behind 500.
func messageFor(err error, status int) string {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	if errors.Is(err, domain.ErrInventoryUnavailable) {
		return domain.ErrInventoryUnavailable.Error()
	}
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, messageFor(err, status))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   msg,
	})
}
