package domain

import "time"

type OrderStatus string

const (
	OrderConfirmed OrderStatus = "CONFIRMED"
)

// Order is created exactly once per checkout session, inside the atomic
// completion transaction. Items carry the locked-price snapshot, never
// live catalog prices.
type Order struct {
	ID             string
	CustomerID     string
	SessionID      string
	IdempotencyKey string
	Items          []LockedPriceItem
	TotalAmount    float64
	Status         OrderStatus
	CreatedAt      time.Time
}
