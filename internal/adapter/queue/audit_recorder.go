package queue

import (
	"context"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// AuditWriter persists one audit event.
type AuditWriter interface {
	Insert(ctx context.Context, ev domain.AuditEvent) error
}

// AuditRecorder drains published audit events into durable storage. Used
// with the JSON adapter: queue.JSONHandler[domain.AuditEvent].
type AuditRecorder struct {
	Writer AuditWriter
}

func NewAuditRecorder(w AuditWriter) *AuditRecorder {
	return &AuditRecorder{Writer: w}
}

func (h *AuditRecorder) HandleEvent(ctx context.Context, ev domain.AuditEvent) error {
	return h.Writer.Insert(ctx, ev)
}
