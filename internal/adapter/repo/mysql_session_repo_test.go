package repo

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepo(t *testing.T) (*MySQLSessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLSessionRepo(db), mock
}

func TestSessionRepo_Create_MapsDuplicateKey(t *testing.T) {
	r, mock := newSessionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_sessions")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := r.Create(context.Background(), &domain.CheckoutSession{
		ID:             "sess-1",
		CustomerID:     "cust-1",
		IdempotencyKey: "idem-1",
	})
	assert.ErrorIs(t, err, usecase.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_GetByID_RoundTripsLockedPrices(t *testing.T) {
	r, mock := newSessionRepo(t)

	locked := []domain.LockedPriceItem{
		{ItemID: "cart-1", ProductID: "prod-1", Quantity: 2, UnitPrice: 60, FinalPrice: 60, Name: "Peony Bouquet"},
	}
	prices, err := json.Marshal(locked)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM checkout_sessions WHERE id=?")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "idempotency_key", "locked_prices", "total_amount",
			"status", "expires_at", "created_at", "updated_at",
		}).AddRow("sess-1", "cust-1", "idem-1", prices, 120.0, "AWAITING_PAYMENT", now.Add(15*time.Minute), now, now))

	s, err := r.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingPayment, s.Status)
	require.Len(t, s.LockedPrices, 1)
	assert.Equal(t, "Peony Bouquet", s.LockedPrices[0].Name)
	assert.Equal(t, 120.0, s.TotalAmount)
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	r, mock := newSessionRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+sessionColumns+" FROM checkout_sessions WHERE id=?")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestSessionRepo_UpdateStatusIf(t *testing.T) {
	r, mock := newSessionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkout_sessions SET status=?, updated_at=NOW() WHERE id=? AND status=?")).
		WithArgs("PROCESSING_PAYMENT", "sess-1", "AWAITING_PAYMENT").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := r.UpdateStatusIf(context.Background(), "sess-1", domain.StatusAwaitingPayment, domain.StatusProcessingPayment)
	require.NoError(t, err)
	assert.True(t, ok)

	// A session no longer in the expected status matches zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkout_sessions SET status=?, updated_at=NOW() WHERE id=? AND status=?")).
		WithArgs("PROCESSING_PAYMENT", "sess-1", "AWAITING_PAYMENT").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = r.UpdateStatusIf(context.Background(), "sess-1", domain.StatusAwaitingPayment, domain.StatusProcessingPayment)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_UpdateStatus_MissingRow(t *testing.T) {
	r, mock := newSessionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkout_sessions SET status=?, updated_at=NOW() WHERE id=?")).
		WithArgs("EXPIRED", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.UpdateStatus(context.Background(), "nope", domain.StatusExpired)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}
