package usecase

import (
	"context"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// GetSession reads a session, applying the lazy expiry check.
func (c *Checkout) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	return c.loadSession(ctx, sessionID)
}

type ValidateOutput struct {
	Status domain.Status
	// PriceChanges is informational only. The locked prices are charged
	// regardless of what the catalog says now.
	PriceChanges []domain.PriceChange
}

// Validate re-checks live stock against the locked lines. A shortfall fails
// the session permanently; price drift is reported but never re-priced.
func (c *Checkout) Validate(ctx context.Context, sessionID string) (*ValidateOutput, error) {
	s, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status == domain.StatusCompleted {
		return nil, flowErr(CodeSessionCompleted, "checkout session already completed")
	}
	if err := c.transition(ctx, s, domain.StatusValidating, ""); err != nil {
		return nil, flowErr(CodeInvalidRequest, "checkout session is not in a validatable state")
	}

	var (
		shortfalls   []domain.Shortfall
		priceChanges []domain.PriceChange
	)
	for _, item := range s.LockedPrices {
		live, err := c.catalog.LivePricing(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return nil, err
		}
		if item.VariantID != nil && live.Stock < item.Quantity {
			shortfalls = append(shortfalls, shortfall(live, item.Quantity))
			continue
		}
		if domain.PriceChanged(item.FinalPrice, live.FinalPrice()) {
			priceChanges = append(priceChanges, domain.PriceChange{
				ProductID:   item.ProductID,
				Name:        item.Name,
				LockedPrice: item.FinalPrice,
				LivePrice:   live.FinalPrice(),
			})
		}
	}

	if len(shortfalls) > 0 {
		if err := c.transition(ctx, s, domain.StatusFailed, domain.AuditCheckoutFailed); err != nil {
			return nil, err
		}
		return nil, flowErrWith(CodeStockValidationFailed, "stock changed since initiation, restart checkout", shortfalls)
	}

	if err := c.transition(ctx, s, domain.StatusAwaitingPayment, domain.AuditCheckoutValidated); err != nil {
		return nil, err
	}
	return &ValidateOutput{Status: s.Status, PriceChanges: priceChanges}, nil
}
