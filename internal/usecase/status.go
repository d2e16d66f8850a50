package usecase

import (
	"context"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// Status returns the session's current status for cheap polling. Terminal
// statuses are served from the cache since they can never change again;
// anything else reads the session so the lazy expiry check applies.
func (c *Checkout) Status(ctx context.Context, sessionID string) (domain.Status, error) {
	if c.cache != nil {
		if v, err := c.cache.GetStatus(ctx, sessionID); err == nil {
			if st := domain.Status(v); st.IsTerminal() {
				return st, nil
			}
		}
	}
	s, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.Status, nil
}
