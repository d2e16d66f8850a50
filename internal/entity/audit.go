package domain

import "time"

// AuditEvent records one checkout state transition. Write-only: nothing in
// the orchestration path reads these back.
type AuditEvent struct {
	SessionID  string         `json:"sessionId"`
	CustomerID string         `json:"customerId"`
	Action     string         `json:"action"`
	FromStatus string         `json:"fromStatus,omitempty"`
	ToStatus   string         `json:"toStatus,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	At         time.Time      `json:"at"`
}

// Audit actions emitted by the orchestrator.
const (
	AuditCheckoutInitiated = "checkout.initiated"
	AuditCheckoutValidated = "checkout.validated"
	AuditCheckoutFailed    = "checkout.failed"
	AuditCheckoutExpired   = "checkout.expired"
	AuditCheckoutCancelled = "checkout.cancelled"
	AuditCheckoutCompleted = "checkout.completed"
	AuditPaymentStarted    = "payment.started"
	AuditPaymentSucceeded  = "payment.succeeded"
	AuditPaymentFailed     = "payment.failed"
	AuditOrderCreated      = "order.created"
)
