package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/google/uuid"
)

type InitiateInput struct {
	CustomerID      string
	SelectedItemIDs []string
	IdempotencyKey  string
}

type InitiateOutput struct {
	SessionID    string
	Status       domain.Status
	LockedPrices []domain.LockedPriceItem
	TotalAmount  float64
	ExpiresAt    time.Time
	IsExisting   bool
}

// Initiate locks prices for the selected cart lines and opens a session.
// Replays with a known idempotency key return the original session
// unchanged, even under concurrent duplicates.
func (c *Checkout) Initiate(ctx context.Context, in InitiateInput) (*InitiateOutput, error) {
	if in.CustomerID == "" || in.IdempotencyKey == "" {
		return nil, flowErr(CodeInvalidRequest, "customerId and idempotencyKey are required")
	}
	if len(in.SelectedItemIDs) == 0 {
		return nil, flowErr(CodeInvalidRequest, "selectedItemIds must not be empty")
	}

	// Fast path: idempotency recall.
	if id, ok, _ := c.idem.Recall(ctx, idemScopeSession+":"+in.CustomerID, in.IdempotencyKey); ok {
		if s, err := c.sessions.GetByID(ctx, id); err == nil {
			return existingSession(s), nil
		}
	}
	if s, err := c.sessions.GetByIdemKey(ctx, in.CustomerID, in.IdempotencyKey); err == nil {
		return existingSession(s), nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	lines, err := c.cart.SelectedItems(ctx, in.CustomerID, in.SelectedItemIDs)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, flowErr(CodeEmptyCart, "no cart items found for the selected ids")
	}

	var shortfalls []domain.Shortfall
	for _, line := range lines {
		// Inventory is tracked per variant; variant-less lines are never
		// stock-gated, here or at commit.
		if line.Pricing.VariantID == nil {
			continue
		}
		if line.Pricing.Stock < line.Quantity {
			shortfalls = append(shortfalls, shortfall(line.Pricing, line.Quantity))
		}
	}
	if len(shortfalls) > 0 {
		return nil, flowErrWith(CodeInsufficientStock, "one or more items are out of stock", shortfalls)
	}

	locked := make([]domain.LockedPriceItem, 0, len(lines))
	var total float64
	for _, line := range lines {
		item := domain.LockPrice(line.ItemID, line.Quantity, line.Pricing)
		locked = append(locked, item)
		total += item.LineTotal()
	}

	now := c.now()
	s := &domain.CheckoutSession{
		ID:             uuid.NewString(),
		CustomerID:     in.CustomerID,
		IdempotencyKey: in.IdempotencyKey,
		LockedPrices:   locked,
		TotalAmount:    total,
		Status:         domain.StatusInitiated,
		ExpiresAt:      now.Add(domain.SessionTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.sessions.Create(ctx, s); err != nil {
		// A concurrent duplicate won the insert race: converge on its row.
		if errors.Is(err, ErrDuplicateKey) {
			winner, err := c.sessions.GetByIdemKey(ctx, in.CustomerID, in.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return existingSession(winner), nil
		}
		return nil, err
	}

	_ = c.idem.Remember(ctx, idemScopeSession+":"+in.CustomerID, in.IdempotencyKey, s.ID)
	c.cacheStatus(ctx, s.ID, s.Status)
	c.recordAudit(ctx, domain.AuditEvent{
		SessionID:  s.ID,
		CustomerID: s.CustomerID,
		Action:     domain.AuditCheckoutInitiated,
		ToStatus:   s.Status.String(),
		Detail:     map[string]any{"totalAmount": total, "lines": len(locked)},
		At:         now,
	})

	return &InitiateOutput{
		SessionID:    s.ID,
		Status:       s.Status,
		LockedPrices: s.LockedPrices,
		TotalAmount:  s.TotalAmount,
		ExpiresAt:    s.ExpiresAt,
	}, nil
}

func existingSession(s *domain.CheckoutSession) *InitiateOutput {
	return &InitiateOutput{
		SessionID:    s.ID,
		Status:       s.Status,
		LockedPrices: s.LockedPrices,
		TotalAmount:  s.TotalAmount,
		ExpiresAt:    s.ExpiresAt,
		IsExisting:   true,
	}
}

func shortfall(p domain.ProductPricing, requested int) domain.Shortfall {
	sf := domain.Shortfall{
		ProductID: p.ProductID,
		Name:      p.Name,
		Requested: requested,
		Available: p.Stock,
	}
	if p.VariantID != nil {
		sf.VariantID = *p.VariantID
	}
	return sf
}
