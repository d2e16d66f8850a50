package kafka

import (
	"context"

	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
)

// PaymentSettledHandler marks SUCCEEDED payments as settled when the
// gateway's settlement feed confirms the charge.
type PaymentSettledHandler struct {
	Payments usecase.PaymentRepo
}

func NewPaymentSettledHandler(payments usecase.PaymentRepo) *PaymentSettledHandler {
	return &PaymentSettledHandler{Payments: payments}
}

func (h *PaymentSettledHandler) Handle(ctx context.Context, ev usecase.PaymentSettledMsg) error {
	ok, err := h.Payments.MarkSettled(ctx, ev.GatewayRef)
	if err != nil {
		return err
	}
	if !ok {
		// Unknown or already-settled reference; marking it again is a no-op
		// and retrying would not change that.
		logging.New("kafka-settlement").Warn("settlement for unknown gateway ref",
			"gateway_ref", ev.GatewayRef, "session_id", ev.SessionID)
	}
	return nil
}
