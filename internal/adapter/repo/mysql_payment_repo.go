package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
)

type MySQLPaymentRepo struct{ db *sql.DB }

func NewMySQLPaymentRepo(db *sql.DB) *MySQLPaymentRepo { return &MySQLPaymentRepo{db: db} }

const paymentColumns = `id,session_id,idempotency_key,amount,method,status,gateway_ref,error_message,attempt,order_id,settled_at,created_at,updated_at`

func (r *MySQLPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments
  (id,session_id,idempotency_key,amount,method,status,gateway_ref,error_message,attempt,order_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, p.ID, p.SessionID, p.IdempotencyKey, p.Amount, p.Method, string(p.Status),
		p.GatewayRef, p.ErrorMessage, p.Attempt, nullable(p.OrderID), p.CreatedAt, p.UpdatedAt)
	if isDuplicateKey(err) {
		return usecase.ErrDuplicateKey
	}
	return err
}

func (r *MySQLPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+paymentColumns+` FROM payments WHERE id=?`, id)
	return scanPayment(row)
}

func (r *MySQLPaymentRepo) GetByIdemKey(ctx context.Context, key string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+paymentColumns+` FROM payments WHERE idempotency_key=?`, key)
	return scanPayment(row)
}

func (r *MySQLPaymentRepo) GetSucceededBySession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+paymentColumns+` FROM payments
WHERE session_id=? AND status='SUCCEEDED'
ORDER BY created_at DESC LIMIT 1`, sessionID)
	return scanPayment(row)
}

func (r *MySQLPaymentRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM payments WHERE session_id=?`, sessionID).Scan(&n)
	return n, err
}

func (r *MySQLPaymentRepo) MarkSucceeded(ctx context.Context, id, gatewayRef string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments SET status='SUCCEEDED', gateway_ref=?, updated_at=NOW()
WHERE id=? AND status='PROCESSING'`, gatewayRef, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLPaymentRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments SET status='FAILED', error_message=?, updated_at=NOW()
WHERE id=? AND status='PROCESSING'`, errMsg, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLPaymentRepo) MarkSettled(ctx context.Context, gatewayRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE payments SET settled_at=NOW(), updated_at=NOW()
WHERE gateway_ref=? AND status='SUCCEEDED' AND settled_at IS NULL`, gatewayRef)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func scanPayment(row *sql.Row) (*domain.Payment, error) {
	var (
		p          domain.Payment
		status     string
		gatewayRef sql.NullString
		errMsg     sql.NullString
		orderID    sql.NullString
		settledAt  sql.NullTime
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.IdempotencyKey, &p.Amount, &p.Method, &status,
		&gatewayRef, &errMsg, &p.Attempt, &orderID, &settledAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	p.GatewayRef = gatewayRef.String
	p.ErrorMessage = errMsg.String
	p.OrderID = orderID.String
	if settledAt.Valid {
		t := settledAt.Time
		p.SettledAt = &t
	}
	return &p, nil
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ usecase.PaymentRepo = (*MySQLPaymentRepo)(nil)
