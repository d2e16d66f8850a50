package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

// isDuplicateKey reports a MySQL 1062 unique-constraint violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type MySQLSessionRepo struct{ db *sql.DB }

func NewMySQLSessionRepo(db *sql.DB) *MySQLSessionRepo { return &MySQLSessionRepo{db: db} }

func (r *MySQLSessionRepo) Create(ctx context.Context, s *domain.CheckoutSession) error {
	prices, err := json.Marshal(s.LockedPrices)
	if err != nil {
		return fmt.Errorf("marshal locked prices: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO checkout_sessions
  (id,customer_id,idempotency_key,locked_prices,total_amount,status,expires_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)
`, s.ID, s.CustomerID, s.IdempotencyKey, prices, s.TotalAmount, s.Status.String(), s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	if isDuplicateKey(err) {
		return usecase.ErrDuplicateKey
	}
	return err
}

const sessionColumns = `id,customer_id,idempotency_key,locked_prices,total_amount,status,expires_at,created_at,updated_at`

func (r *MySQLSessionRepo) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM checkout_sessions WHERE id=?`, id)
	return scanSession(row)
}

func (r *MySQLSessionRepo) GetByIdemKey(ctx context.Context, customerID, key string) (*domain.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM checkout_sessions WHERE customer_id=? AND idempotency_key=?`, customerID, key)
	return scanSession(row)
}

func (r *MySQLSessionRepo) UpdateStatus(ctx context.Context, id string, to domain.Status) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE checkout_sessions SET status=?, updated_at=NOW() WHERE id=?`, to.String(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (r *MySQLSessionRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE checkout_sessions SET status=?, updated_at=NOW() WHERE id=? AND status=?`,
		to.String(), id, from.String())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 -> not found or not in the expected status
	return rows > 0, nil
}

func scanSession(row *sql.Row) (*domain.CheckoutSession, error) {
	var (
		s      domain.CheckoutSession
		status string
		prices []byte
	)
	err := row.Scan(&s.ID, &s.CustomerID, &s.IdempotencyKey, &prices, &s.TotalAmount,
		&status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	if len(prices) > 0 {
		if err := json.Unmarshal(prices, &s.LockedPrices); err != nil {
			return nil, fmt.Errorf("unmarshal locked prices: %w", err)
		}
	}
	return &s, nil
}

var _ usecase.SessionRepo = (*MySQLSessionRepo)(nil)
