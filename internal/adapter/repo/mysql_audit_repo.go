package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// MySQLAuditRepo persists audit events drained from the audit queue.
type MySQLAuditRepo struct{ db *sql.DB }

func NewMySQLAuditRepo(db *sql.DB) *MySQLAuditRepo { return &MySQLAuditRepo{db: db} }

func (r *MySQLAuditRepo) Insert(ctx context.Context, ev domain.AuditEvent) error {
	var detail []byte
	if ev.Detail != nil {
		b, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = b
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO checkout_audit (session_id,customer_id,action,from_status,to_status,detail,occurred_at)
VALUES (?,?,?,?,?,?,?)
`, ev.SessionID, ev.CustomerID, ev.Action, ev.FromStatus, ev.ToStatus, detail, ev.At)
	return err
}
