package queue

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "checkout.audit"
	routingKey   = "checkout.audit.event"
	queueName    = "checkout.audit.q"
)

// AuditProducer implements usecase.AuditSink over RabbitMQ. Audit is
// write-only: a publish failure is reported to the caller, which logs and
// drops it.
type AuditProducer struct {
	ch *amqp.Channel
}

// NewAuditProducer declares the exchange, queue and binding once at startup.
func NewAuditProducer(ch *amqp.Channel) (*AuditProducer, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &AuditProducer{ch: ch}, nil
}

func (p *AuditProducer) Record(ctx context.Context, ev domain.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

var _ usecase.AuditSink = (*AuditProducer)(nil)
