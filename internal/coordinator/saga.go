package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jcmexdev/oms-sagas/internal/coordinator/sagalog"
)

// Step represents a single unit of work in the Saga.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
}

// Compensable is a Step whose effect can be undone. Only steps that
// completed successfully are ever compensated, each at most once.
type Compensable interface {
	Step
	Compensate(ctx context.Context) error
}

// StepResult is the tagged outcome of one executed step.
type StepResult struct {
	Step     string
	Err      error
	Duration time.Duration
}

func (r StepResult) Failed() bool { return r.Err != nil }

// Metrics receives saga measurements. A nil Metrics is replaced by a no-op.
type Metrics interface {
	ObserveStep(step string, d time.Duration, err error)
	Compensated(step string, err error)
	SagaFinished(outcome string)
}

// Orchestrator manages the execution of a collection of Steps.
type Orchestrator struct {
	sagaID  string
	steps   []Step
	repo    sagalog.Repository
	metrics Metrics
	payload string
}

type Option func(*Orchestrator)

// WithSagaLog persists every state transition. Persist errors are logged
// and never fail the saga.
func WithSagaLog(repo sagalog.Repository) Option {
	return func(o *Orchestrator) { o.repo = repo }
}

func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithPayload stores v as JSON on the STARTED log entry.
func WithPayload(v any) Option {
	return func(o *Orchestrator) {
		if b, err := json.Marshal(v); err == nil {
			o.payload = string(b)
		}
	}
}

func NewOrchestrator(sagaID string, steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{sagaID: sagaID, steps: steps, metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start runs the steps in order and stops at the first failure. Whatever
// way Start leaves after a failure (an error or a panic in a step), the
// compensations of the steps that already succeeded run exactly once in
// reverse order, their errors are logged and dropped, and the error of the
// failing step is returned unchanged.
func (o *Orchestrator) Start(ctx context.Context) (results []StepResult, err error) {
	ctx, span := otel.Tracer("coordinator").Start(ctx, "saga "+o.sagaID)
	defer span.End()

	o.record(ctx, sagalog.StatusStarted, "")

	var done []Compensable
	current := ""

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("saga %s: step %s panicked: %v", o.sagaID, current, p)
			results = append(results, StepResult{Step: current, Err: err})
		}
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "saga step failed, starting rollback",
			"saga_id", o.sagaID, "step", current, "error", err)

		// A cancelled caller must not be able to suppress the rollback.
		detached := context.WithoutCancel(ctx)
		compErrs := o.rollback(detached, done)
		msgs := []string{fmt.Sprintf("step %s failed: %v", current, err)}
		msgs = append(msgs, compErrs...)
		o.record(detached, sagalog.StatusFailed, current, msgs...)
		o.metrics.SagaFinished("failed")
	}()

	for _, step := range o.steps {
		current = step.Name()
		slog.InfoContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", current)

		res := o.execute(ctx, step)
		results = append(results, res)
		if res.Failed() {
			return results, res.Err
		}
		// Track successful step for potential compensation (LIFO)
		if c, ok := step.(Compensable); ok {
			done = append(done, c)
		}
		o.record(ctx, sagalog.StatusStepDone, current)
	}

	o.record(ctx, sagalog.StatusCompleted, current)
	o.metrics.SagaFinished("completed")
	slog.InfoContext(ctx, "saga completed successfully", "saga_id", o.sagaID)
	return results, nil
}

func (o *Orchestrator) execute(ctx context.Context, step Step) StepResult {
	ctx, span := otel.Tracer("coordinator").Start(ctx, step.Name())
	defer span.End()
	span.SetAttributes(attribute.String("saga.id", o.sagaID))

	start := time.Now()
	err := step.Execute(ctx)
	d := time.Since(start)
	o.metrics.ObserveStep(step.Name(), d, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return StepResult{Step: step.Name(), Err: err, Duration: d}
}

func (o *Orchestrator) rollback(ctx context.Context, steps []Compensable) []string {
	if len(steps) == 0 {
		return nil
	}
	o.record(ctx, sagalog.StatusCompensating, steps[len(steps)-1].Name())

	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())
		err := o.compensate(ctx, step)
		o.metrics.Compensated(step.Name(), err)
		if err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate step",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

// compensate shields the rollback loop from a panicking compensation.
func (o *Orchestrator) compensate(ctx context.Context, step Compensable) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("compensation panicked: %v", p)
		}
	}()
	return step.Compensate(ctx)
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step string, errs ...string) {
	if o.repo == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step)
	entry.Errors = errs
	if status == sagalog.StatusStarted {
		entry.Payload = o.payload
	}
	if err := o.repo.Append(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to persist saga log entry",
			"saga_id", o.sagaID, "status", status, "error", err)
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveStep(string, time.Duration, error) {}
func (nopMetrics) Compensated(string, error)                {}
func (nopMetrics) SagaFinished(string)                      {}
