package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
)

// HandlerFunc processes a decoded settlement event.
type HandlerFunc func(ctx context.Context, ev usecase.PaymentSettledMsg) error

// Consumer consumes the settlement topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka-settlement"),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			return err
		}
		// Consume returns on ctx cancellation or a rebalance.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var ev usecase.PaymentSettledMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			h.logger.Warn("settlement decode error", "err", err, "offset", msg.Offset)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if err := h.handle(sess.Context(), ev); err != nil {
			h.logger.Error("settlement handler error", "err", err,
				"gateway_ref", ev.GatewayRef, "offset", msg.Offset)
			// Do not mark; retried on the next poll.
			continue
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
