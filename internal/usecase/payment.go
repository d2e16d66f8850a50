package usecase

import (
	"context"
	"errors"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/google/uuid"
)

type PayInput struct {
	SessionID      string
	Method         string
	IdempotencyKey string
}

type PayOutput struct {
	PaymentID  string
	GatewayRef string
	Status     domain.PaymentStatus
	IsExisting bool
}

// Pay charges the session's locked total through the gateway, bounded by the
// charge timeout. Retries with the same idempotency key replay the stored
// outcome without a second gateway call.
func (c *Checkout) Pay(ctx context.Context, in PayInput) (*PayOutput, error) {
	if in.Method == "" || in.IdempotencyKey == "" {
		return nil, flowErr(CodeInvalidRequest, "paymentMethod and idempotencyKey are required")
	}
	if !c.gateway.Supports(in.Method) {
		return nil, flowErr(CodeInvalidPaymentMethod, "unsupported payment method: "+in.Method)
	}

	s, err := c.loadSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if s.Status == domain.StatusCompleted {
		return nil, flowErr(CodeAlreadyCompleted, "checkout session already completed")
	}

	// Idempotent replay: same key never reaches the gateway twice.
	if id, ok, _ := c.idem.Recall(ctx, idemScopePayment, in.IdempotencyKey); ok {
		if p, err := c.payments.GetByID(ctx, id); err == nil {
			return c.replayPayment(p)
		}
	}
	if p, err := c.payments.GetByIdemKey(ctx, in.IdempotencyKey); err == nil {
		return c.replayPayment(p)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ok, err := c.sessions.UpdateStatusIf(ctx, s.ID, domain.StatusAwaitingPayment, domain.StatusProcessingPayment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, flowErr(CodeInvalidRequest, "checkout session is not awaiting payment")
	}
	s.Status = domain.StatusProcessingPayment
	c.cacheStatus(ctx, s.ID, s.Status)

	attempts, err := c.payments.CountBySession(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	p := &domain.Payment{
		ID:             uuid.NewString(),
		SessionID:      s.ID,
		IdempotencyKey: in.IdempotencyKey,
		Amount:         s.TotalAmount,
		Method:         in.Method,
		Status:         domain.PaymentProcessing,
		Attempt:        attempts + 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.payments.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			winner, err := c.payments.GetByIdemKey(ctx, in.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return c.replayPayment(winner)
		}
		return nil, err
	}
	_ = c.idem.Remember(ctx, idemScopePayment, in.IdempotencyKey, p.ID)
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditPaymentStarted,
		Detail:     map[string]any{"paymentId": p.ID, "method": in.Method, "attempt": p.Attempt},
		At:         now,
	})

	chargeCtx, cancel := context.WithTimeout(ctx, c.chargeTimeout)
	defer cancel()
	res, chargeErr := c.gateway.Charge(chargeCtx, ChargeRequest{
		Amount:         s.TotalAmount,
		Method:         in.Method,
		IdempotencyKey: in.IdempotencyKey,
		CustomerID:     s.CustomerID,
	})

	if chargeErr != nil {
		code := CodePaymentFailed
		msg := chargeErr.Error()
		if errors.Is(chargeErr, context.DeadlineExceeded) {
			code = CodeGatewayTimeout
			msg = "payment gateway timed out"
		}
		return nil, c.failPayment(ctx, s, p, code, msg)
	}
	if !res.Success {
		code := CodePaymentFailed
		if res.ErrorCode == CodeGatewayTimeout {
			code = CodeGatewayTimeout
		}
		return nil, c.failPayment(ctx, s, p, code, res.ErrorMessage)
	}

	if err := c.payments.MarkSucceeded(ctx, p.ID, res.GatewayRef); err != nil {
		return nil, err
	}
	p.Status = domain.PaymentSucceeded
	p.GatewayRef = res.GatewayRef
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditPaymentSucceeded,
		Detail:     map[string]any{"paymentId": p.ID, "gatewayRef": res.GatewayRef},
		At:         c.now(),
	})

	return &PayOutput{PaymentID: p.ID, GatewayRef: res.GatewayRef, Status: p.Status}, nil
}

// failPayment records the failure and reverts the session so the client can
// retry with a fresh idempotency key. The session is never left stuck in
// PROCESSING_PAYMENT.
func (c *Checkout) failPayment(ctx context.Context, s *domain.CheckoutSession, p *domain.Payment, code, msg string) error {
	if err := c.payments.MarkFailed(ctx, p.ID, msg); err != nil {
		c.log.Error("mark payment failed", "payment_id", p.ID, "err", err)
	}
	if _, err := c.sessions.UpdateStatusIf(ctx, s.ID, domain.StatusProcessingPayment, domain.StatusAwaitingPayment); err != nil {
		c.log.Error("revert session to awaiting payment", "session_id", s.ID, "err", err)
	} else {
		s.Status = domain.StatusAwaitingPayment
		c.cacheStatus(ctx, s.ID, s.Status)
	}
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditPaymentFailed,
		Detail:     map[string]any{"paymentId": p.ID, "code": code, "message": msg},
		At:         c.now(),
	})
	return flowErrWith(code, msg, map[string]any{"paymentId": p.ID})
}

// replayPayment maps a stored payment row back to its original response.
func (c *Checkout) replayPayment(p *domain.Payment) (*PayOutput, error) {
	switch p.Status {
	case domain.PaymentSucceeded, domain.PaymentProcessing:
		return &PayOutput{PaymentID: p.ID, GatewayRef: p.GatewayRef, Status: p.Status, IsExisting: true}, nil
	default:
		return nil, flowErrWith(CodePaymentFailed, p.ErrorMessage, map[string]any{"paymentId": p.ID, "isExisting": true})
	}
}

// Methods lists the gateway's supported payment methods.
func (c *Checkout) Methods() []string {
	return c.gateway.Methods()
}
