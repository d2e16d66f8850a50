package repo

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFixture() (*domain.CheckoutSession, *domain.Payment) {
	v1, v2 := "var-1", "var-2"
	s := &domain.CheckoutSession{
		ID:             "sess-1",
		CustomerID:     "cust-1",
		IdempotencyKey: "idem-1",
		LockedPrices: []domain.LockedPriceItem{
			{ItemID: "cart-1", ProductID: "prod-1", VariantID: &v1, Quantity: 2, FinalPrice: 60, Name: "Peony Bouquet"},
			{ItemID: "cart-2", ProductID: "prod-2", VariantID: &v2, Quantity: 1, FinalPrice: 24, Name: "Linen Table Runner"},
		},
		TotalAmount: 144,
		Status:      domain.StatusProcessingPayment,
	}
	p := &domain.Payment{ID: "pay-1", SessionID: s.ID, Status: domain.PaymentSucceeded}
	return s, p
}

func TestOrderRepo_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewMySQLOrderRepo(db)
	s, p := commitFixture()

	stockUpdate := regexp.QuoteMeta("UPDATE product_variants SET stock = stock - ?")

	mock.ExpectBegin()
	mock.ExpectExec(stockUpdate).WithArgs(2, "var-1", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stockUpdate).WithArgs(1, "var-2", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(sqlmock.AnyArg(), "cust-1", "sess-1", "idem-1", sqlmock.AnyArg(), 144.0, "CONFIRMED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET order_id=?")).
		WithArgs(sqlmock.AnyArg(), "pay-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	orderID, err := r.Commit(context.Background(), s, p)
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Commit_OversellRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewMySQLOrderRepo(db)
	s, p := commitFixture()

	stockUpdate := regexp.QuoteMeta("UPDATE product_variants SET stock = stock - ?")

	mock.ExpectBegin()
	mock.ExpectExec(stockUpdate).WithArgs(2, "var-1", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	// Second line lost the race for the last units.
	mock.ExpectExec(stockUpdate).WithArgs(1, "var-2", 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = r.Commit(context.Background(), s, p)
	var oversell *usecase.OversellError
	require.ErrorAs(t, err, &oversell)
	assert.Equal(t, "prod-2", oversell.ProductID)
	assert.Equal(t, "Linen Table Runner", oversell.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByCustomerAndIdemKey_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	r := NewMySQLOrderRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE customer_id=? AND idempotency_key=?")).
		WithArgs("cust-1", "idem-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = r.GetByCustomerAndIdemKey(context.Background(), "cust-1", "idem-1")
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}
