package usecase

import (
	"context"
	"errors"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

type CompleteInput struct {
	SessionID      string
	PaymentID      string
	IdempotencyKey string
}

type CompleteOutput struct {
	OrderID    string
	IsExisting bool
}

// Complete commits the order atomically: conditional stock decrements, order
// insert and payment link either all apply or none. A dropped response is
// safe to retry; the replay returns the original order.
func (c *Checkout) Complete(ctx context.Context, in CompleteInput) (*CompleteOutput, error) {
	s, err := c.loadSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	if s.Status == domain.StatusCompleted {
		// The commit stored the order under the request's override key when
		// one was given, so the replay lookup must prefer it.
		key := s.IdempotencyKey
		if in.IdempotencyKey != "" {
			key = in.IdempotencyKey
		}
		o, err := c.orders.GetByCustomerAndIdemKey(ctx, s.CustomerID, key)
		if errors.Is(err, ErrNotFound) && key != s.IdempotencyKey {
			o, err = c.orders.GetByCustomerAndIdemKey(ctx, s.CustomerID, s.IdempotencyKey)
		}
		if err != nil {
			return nil, err
		}
		return &CompleteOutput{OrderID: o.ID, IsExisting: true}, nil
	}

	p, err := c.resolvePayment(ctx, s, in.PaymentID)
	if err != nil {
		return nil, err
	}

	commitSession := *s
	if in.IdempotencyKey != "" {
		commitSession.IdempotencyKey = in.IdempotencyKey
	}
	orderID, err := c.committer.Commit(ctx, &commitSession, p)
	if err != nil {
		var oversell *OversellError
		if errors.As(err, &oversell) {
			if terr := c.transition(ctx, s, domain.StatusFailed, domain.AuditCheckoutFailed); terr != nil {
				c.log.Error("mark session failed after oversell", "session_id", s.ID, "err", terr)
			}
			return nil, flowErrWith(CodeInsufficientStock, oversell.Error(), map[string]any{
				"productId": oversell.ProductID,
				"name":      oversell.Name,
			})
		}
		return nil, err
	}

	// Post-commit work is best-effort: the order exists either way.
	if err := c.sessions.UpdateStatus(ctx, s.ID, domain.StatusCompleted); err != nil {
		c.log.Error("mark session completed", "session_id", s.ID, "err", err)
	} else {
		s.Status = domain.StatusCompleted
		c.cacheStatus(ctx, s.ID, s.Status)
	}

	itemIDs := make([]string, 0, len(s.LockedPrices))
	for _, item := range s.LockedPrices {
		itemIDs = append(itemIDs, item.ItemID)
	}
	if err := c.cart.RemoveItems(ctx, s.CustomerID, itemIDs); err != nil {
		c.log.Warn("clear purchased cart items", "session_id", s.ID, "err", err)
	}

	now := c.now()
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditOrderCreated,
		Detail:     map[string]any{"orderId": orderID, "totalAmount": s.TotalAmount},
		At:         now,
	})
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditCheckoutCompleted,
		ToStatus:   domain.StatusCompleted.String(),
		At:         now,
	})

	return &CompleteOutput{OrderID: orderID}, nil
}

// resolvePayment finds the SUCCEEDED payment backing the completion. A
// client-supplied paymentId is only trusted after verifying it belongs to
// this session; otherwise the session's own succeeded payment is used.
func (c *Checkout) resolvePayment(ctx context.Context, s *domain.CheckoutSession, paymentID string) (*domain.Payment, error) {
	if paymentID != "" {
		p, err := c.payments.GetByID(ctx, paymentID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if p != nil && p.SessionID == s.ID && p.Status == domain.PaymentSucceeded {
			return p, nil
		}
	}
	p, err := c.payments.GetSucceededBySession(ctx, s.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, flowErr(CodePaymentNotFound, "no successful payment found for this session")
		}
		return nil, err
	}
	return p, nil
}
