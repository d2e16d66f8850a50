package domain

import (
	"errors"
	"time"
)

// SessionTTL bounds how long an abandoned checkout stays actionable.
const SessionTTL = 15 * time.Minute

type Status string

const (
	StatusInitiated         Status = "INITIATED"
	StatusValidating        Status = "VALIDATING"
	StatusAwaitingPayment   Status = "AWAITING_PAYMENT"
	StatusProcessingPayment Status = "PROCESSING_PAYMENT"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
	StatusCancelled         Status = "CANCELLED"
	StatusExpired           Status = "EXPIRED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// transitions is the allowed forward edges of the checkout state machine.
// CANCELLED and EXPIRED are reachable from any non-terminal state and are
// handled separately in CanTransition.
var transitions = map[Status][]Status{
	StatusInitiated:         {StatusValidating},
	StatusValidating:        {StatusAwaitingPayment, StatusFailed},
	StatusAwaitingPayment:   {StatusValidating, StatusProcessingPayment},
	StatusProcessingPayment: {StatusAwaitingPayment, StatusCompleted, StatusFailed},
}

func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled || to == StatusExpired {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var ErrInvalidTransition = errors.New("invalid checkout status transition")

// LockedPriceItem is the per-line price snapshot taken at initiation.
// Display fields are captured too, so later catalog edits cannot alter
// what the session shows or charges.
type LockedPriceItem struct {
	ItemID      string  `json:"itemId"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPct"`
	FinalPrice  float64 `json:"finalPrice"`
	Name        string  `json:"name"`
	VariantName string  `json:"variantName,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// LineTotal is what this line contributes to the session total.
func (l LockedPriceItem) LineTotal() float64 {
	return l.FinalPrice * float64(l.Quantity)
}

type CheckoutSession struct {
	ID             string
	CustomerID     string
	IdempotencyKey string
	LockedPrices   []LockedPriceItem
	TotalAmount    float64
	Status         Status
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the session TTL has elapsed. COMPLETED sessions
// never expire; they are already settled.
func (s *CheckoutSession) Expired(now time.Time) bool {
	return s.Status != StatusCompleted && now.After(s.ExpiresAt)
}

// Shortfall describes one line whose requested quantity exceeds live stock.
type Shortfall struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// PriceChange is informational only: the locked price is always charged.
type PriceChange struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	LockedPrice float64 `json:"lockedPrice"`
	LivePrice   float64 `json:"livePrice"`
}
