package usecase

import (
	"context"
	"errors"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// Cancel abandons a session. Nothing is reserved beyond the price lock, so
// there is no inventory to release. Cancelling twice is a no-op.
func (c *Checkout) Cancel(ctx context.Context, sessionID string) error {
	s, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return flowErr(CodeSessionNotFound, "checkout session not found")
		}
		return err
	}
	switch s.Status {
	case domain.StatusCompleted:
		return flowErr(CodeCannotCancel, "completed checkout cannot be cancelled")
	case domain.StatusCancelled:
		return nil
	}

	if err := c.sessions.UpdateStatus(ctx, s.ID, domain.StatusCancelled); err != nil {
		return err
	}
	c.cacheStatus(ctx, s.ID, domain.StatusCancelled)
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditCheckoutCancelled,
		FromStatus: s.Status.String(),
		ToStatus:   domain.StatusCancelled.String(),
		At:         c.now(),
	})
	return nil
}
