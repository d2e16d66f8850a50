package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/google/uuid"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) GetByCustomerAndIdemKey(ctx context.Context, customerID, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,customer_id,session_id,idempotency_key,items,total_amount,status,created_at
FROM orders WHERE customer_id=? AND idempotency_key=?`, customerID, key)
	var (
		o      domain.Order
		status string
		items  []byte
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.SessionID, &o.IdempotencyKey, &items,
		&o.TotalAmount, &status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// Commit performs the completion transaction: per-line conditional stock
// decrement, order insert, payment link. A failed stock guard rolls the
// whole transaction back and returns *usecase.OversellError.
func (r *MySQLOrderRepo) Commit(ctx context.Context, s *domain.CheckoutSession, p *domain.Payment) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	for _, item := range s.LockedPrices {
		if item.VariantID == nil {
			continue
		}
		res, err := tx.ExecContext(ctx, `
UPDATE product_variants SET stock = stock - ?
WHERE id=? AND stock >= ?`, item.Quantity, *item.VariantID, item.Quantity)
		if err != nil {
			return "", err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return "", err
		}
		if rows == 0 {
			// Lost the race for the last units; nothing is committed.
			return "", &usecase.OversellError{ProductID: item.ProductID, Name: item.Name}
		}
	}

	items, err := json.Marshal(s.LockedPrices)
	if err != nil {
		return "", fmt.Errorf("marshal order items: %w", err)
	}
	orderID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO orders (id,customer_id,session_id,idempotency_key,items,total_amount,status,created_at)
VALUES (?,?,?,?,?,?,?,NOW())
`, orderID, s.CustomerID, s.ID, s.IdempotencyKey, items, s.TotalAmount, string(domain.OrderConfirmed)); err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE payments SET order_id=?, updated_at=NOW() WHERE id=?`, orderID, p.ID); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return orderID, nil
}

var (
	_ usecase.OrderRepo         = (*MySQLOrderRepo)(nil)
	_ usecase.CheckoutCommitter = (*MySQLOrderRepo)(nil)
)
