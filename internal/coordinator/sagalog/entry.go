// Package sagalog is the audit trail of create-order saga runs.
//
// Every state transition of a run is appended as one Entry keyed by the
// order id. Entries carry the active trace and span ids, so a failed run can
// be opened in the tracing backend straight from the log. The saga only
// writes; operators read the log back with the "sagalog" CLI command.
package sagalog

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
	StatusCompleted    Status = "COMPLETED"
)

// ErrNotFound is returned by readers for a saga id with no entries.
var ErrNotFound = errors.New("sagalog: saga not found")

type Entry struct {
	SagaID string
	Status Status
	// Step is the step that just finished, failed, or is being compensated.
	Step string
	// Payload is the order JSON; only STARTED entries carry it.
	Payload string
	// Errors lists the failing step first, then any compensation failures.
	Errors  []string
	TraceID string
	SpanID  string
	At      time.Time
}

// NewEntry stamps a transition of sagaID with the span in ctx and the
// current UTC time. Without a recording span the trace fields stay empty.
func NewEntry(ctx context.Context, sagaID string, status Status, step string) Entry {
	e := Entry{SagaID: sagaID, Status: status, Step: step, At: time.Now().UTC()}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}

// Repository is where the orchestrator appends entries. Entries are never
// updated.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

type Reader interface {
	// Latest returns the newest entry, which is the current state of the run.
	Latest(ctx context.Context, sagaID string) (Entry, error)
	// History returns every entry, oldest first.
	History(ctx context.Context, sagaID string) ([]Entry, error)
}
