package messaging

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StatusHandler receives one raw status message from the warehouse.
type StatusHandler func(ctx context.Context, body []byte) error

// LogStatus is the default StatusHandler: it records the update and keeps
// nothing.
func LogStatus(ctx context.Context, body []byte) error {
	slog.InfoContext(ctx, "received WMS status update", "payload", string(body))
	return nil
}

// StatusListener drains status.queue.
type StatusListener struct {
	handler StatusHandler
}

func NewStatusListener(handler StatusHandler) *StatusListener {
	if handler == nil {
		handler = LogStatus
	}
	return &StatusListener{handler: handler}
}

// Listen handles deliveries until ctx is done or the channel closes. A
// handler error rejects the message without requeue, so a bad payload
// cannot loop.
func (l *StatusListener) Listen(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			l.handle(ctx, d)
		}
	}
}

func (l *StatusListener) handle(ctx context.Context, d amqp.Delivery) {
	ctx = extractTrace(ctx, d.Headers)
	if err := l.handler(ctx, d.Body); err != nil {
		slog.ErrorContext(ctx, "status update rejected", "delivery_tag", d.DeliveryTag, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			slog.ErrorContext(ctx, "failed to nack status update", "error", nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		slog.ErrorContext(ctx, "failed to ack status update", "error", err)
	}
}
