package domain

import "time"

type PaymentStatus string

const (
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentFailed     PaymentStatus = "FAILED"
)

type Payment struct {
	ID             string
	SessionID      string
	IdempotencyKey string
	Amount         float64
	Method         string
	Status         PaymentStatus
	GatewayRef     string
	ErrorMessage   string
	Attempt        int
	OrderID        string
	SettledAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
