package usecase

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

// OversellError aborts the completion transaction when a conditional stock
// decrement matches zero rows: another checkout took the last units.
type OversellError struct {
	ProductID string
	Name      string
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s)", e.Name, e.ProductID)
}

type SessionRepo interface {
	// Create persists a new session; returns ErrDuplicateKey when the
	// idempotency key already has a row.
	Create(ctx context.Context, s *domain.CheckoutSession) error
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)
	GetByIdemKey(ctx context.Context, customerID, key string) (*domain.CheckoutSession, error)
	UpdateStatus(ctx context.Context, id string, to domain.Status) error
	// UpdateStatusIf performs a guarded transition; false means the row was
	// not in the expected from-status.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIdemKey(ctx context.Context, key string) (*domain.Payment, error)
	GetSucceededBySession(ctx context.Context, sessionID string) (*domain.Payment, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	MarkSucceeded(ctx context.Context, id, gatewayRef string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	// MarkSettled records gateway settlement; false means no SUCCEEDED
	// payment carries that gateway reference.
	MarkSettled(ctx context.Context, gatewayRef string) (bool, error)
}

type OrderRepo interface {
	GetByCustomerAndIdemKey(ctx context.Context, customerID, key string) (*domain.Order, error)
}

// CheckoutCommitter runs the stock-decrement + order-insert + payment-link
// sequence as one transaction. Returns *OversellError when any stock guard
// fails; in that case nothing was committed.
type CheckoutCommitter interface {
	Commit(ctx context.Context, s *domain.CheckoutSession, p *domain.Payment) (orderID string, err error)
}

// CartLine is one selected cart row hydrated with live catalog pricing.
type CartLine struct {
	ItemID   string
	Quantity int
	Pricing  domain.ProductPricing
}

type CartReader interface {
	SelectedItems(ctx context.Context, customerID string, itemIDs []string) ([]CartLine, error)
	RemoveItems(ctx context.Context, customerID string, itemIDs []string) error
}

type CatalogReader interface {
	// LivePricing re-reads current price, discount and stock for a locked
	// line, keyed by the ids captured at lock time.
	LivePricing(ctx context.Context, productID string, variantID *string) (domain.ProductPricing, error)
}

type ChargeRequest struct {
	Amount         float64
	Method         string
	IdempotencyKey string
	CustomerID     string
}

type ChargeResult struct {
	Success      bool
	GatewayRef   string
	ErrorCode    string
	ErrorMessage string
}

type PaymentGateway interface {
	Supports(method string) bool
	Methods() []string
	// Charge must respect ctx cancellation; the orchestrator bounds every
	// call with a deadline.
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// AuditSink is fire-and-forget: callers log and drop errors.
type AuditSink interface {
	Record(ctx context.Context, ev domain.AuditEvent) error
}

// IdempotencyStore is a fast-path replay cache in front of the database
// unique constraints. Scope separates session keys from payment keys.
type IdempotencyStore interface {
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// StatusCache mirrors session status for cheap polling reads.
type StatusCache interface {
	SetStatus(ctx context.Context, sessionID, status string) error
	GetStatus(ctx context.Context, sessionID string) (string, error)
}
