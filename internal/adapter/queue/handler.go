package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery. Handlers must be idempotent: nil ACKs,
// an error NACKs with requeue behavior decided by the Router.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// JSONHandler decodes d.Body into T before calling HandleFunc.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, msg T) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return err
	}
	return h.HandleFunc(ctx, v)
}
