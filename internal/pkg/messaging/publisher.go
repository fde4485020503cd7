package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jcmexdev/oms-sagas/internal/order-service/domain"
	"github.com/jcmexdev/oms-sagas/internal/order-service/ports"
)

// Publisher is the part of an AMQP channel the order publisher needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OrderPublisher sends the creation result of every committed order to
// orders.queue through the default exchange.
type OrderPublisher struct {
	ch      Publisher
	queue   string
	timeout time.Duration
}

var _ ports.EventPublisher = (*OrderPublisher)(nil)

func NewOrderPublisher(ch Publisher, queue string) *OrderPublisher {
	if queue == "" {
		queue = OrdersQueue
	}
	return &OrderPublisher{ch: ch, queue: queue, timeout: 10 * time.Second}
}

func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, result domain.OrderCreationResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("messaging: serialize order %s: %w", result.Order.OrderID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    result.Order.OrderID,
		Timestamp:    time.Now().UTC(),
		Headers:      injectTrace(ctx),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("messaging: publish order %s: %w", result.Order.OrderID, err)
	}
	slog.InfoContext(ctx, "sent order-created payload", "order_id", result.Order.OrderID, "queue", p.queue)
	return nil
}

func injectTrace(ctx context.Context) amqp.Table {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := amqp.Table{}
	for k, v := range carrier {
		headers[k] = v
	}
	return headers
}

func extractTrace(ctx context.Context, headers amqp.Table) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
