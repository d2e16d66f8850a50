package usecase

import (
	"context"
	"testing"
	"time"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

type fixture struct {
	c         *Checkout
	sessions  *fakeSessions
	payments  *fakePayments
	orders    *fakeOrders
	committer *fakeCommitter
	cart      *fakeCart
	catalog   *fakeCatalog
	gateway   *fakeGateway
	audit     *fakeAudit
	idem      *fakeIdem
	cache     *fakeCache
}

func newFixture() *fixture {
	fx := &fixture{
		sessions:  newFakeSessions(),
		payments:  newFakePayments(),
		orders:    newFakeOrders(),
		committer: &fakeCommitter{orderID: "order-1"},
		cart:      &fakeCart{},
		catalog:   &fakeCatalog{pricing: map[string]domain.ProductPricing{}},
		gateway:   &fakeGateway{result: ChargeResult{Success: true, GatewayRef: "gw-ref-1"}},
		audit:     &fakeAudit{},
		idem:      newFakeIdem(),
		cache:     newFakeCache(),
	}
	fx.c = NewCheckout(Deps{
		Sessions:  fx.sessions,
		Payments:  fx.payments,
		Orders:    fx.orders,
		Committer: fx.committer,
		Cart:      fx.cart,
		Catalog:   fx.catalog,
		Gateway:   fx.gateway,
		Audit:     fx.audit,
		Idem:      fx.idem,
		Cache:     fx.cache,
	})
	return fx
}

func peonyPricing(stock int) domain.ProductPricing {
	return domain.ProductPricing{
		ProductID:    "prod-1",
		Name:         "Peony Bouquet",
		BasePrice:    45,
		VariantID:    sptr("var-1"),
		VariantName:  "Large",
		VariantPrice: fptr(60),
		Stock:        stock,
	}
}

func linenPricing(stock int) domain.ProductPricing {
	return domain.ProductPricing{
		ProductID: "prod-2",
		Name:      "Linen Table Runner",
		BasePrice: 32,
		Discount:  fptr(25),
		Stock:     stock,
	}
}

// seedSession installs a session directly, bypassing Initiate.
func (fx *fixture) seedSession(status domain.Status) *domain.CheckoutSession {
	now := time.Now()
	s := domain.CheckoutSession{
		ID:             "sess-1",
		CustomerID:     "cust-1",
		IdempotencyKey: "idem-1",
		LockedPrices: []domain.LockedPriceItem{
			{ItemID: "cart-1", ProductID: "prod-1", VariantID: sptr("var-1"), Quantity: 2, UnitPrice: 60, FinalPrice: 60, Name: "Peony Bouquet", VariantName: "Large"},
		},
		TotalAmount: 120,
		Status:      status,
		ExpiresAt:   now.Add(domain.SessionTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fx.sessions.put(s)
	cp := s
	return &cp
}

func flowCode(t *testing.T, err error) string {
	t.Helper()
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	return fe.Code
}

func TestInitiate_LocksPricesAndOpensSession(t *testing.T) {
	fx := newFixture()
	fx.cart.lines = []CartLine{
		{ItemID: "cart-1", Quantity: 2, Pricing: peonyPricing(5)},
		{ItemID: "cart-2", Quantity: 1, Pricing: linenPricing(10)},
	}

	out, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-1", "cart-2"},
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, domain.StatusInitiated, out.Status)
	assert.False(t, out.IsExisting)
	require.Len(t, out.LockedPrices, 2)
	// 2 x 60 + 1 x 24 (32 less 25%)
	assert.InDelta(t, 144.0, out.TotalAmount, 0.0001)
	assert.WithinDuration(t, time.Now().Add(domain.SessionTTL), out.ExpiresAt, 2*time.Second)

	assert.Equal(t, []string{domain.AuditCheckoutInitiated}, fx.audit.actions())
	status, err := fx.cache.GetStatus(context.Background(), out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "INITIATED", status)
}

func TestInitiate_ReplaySameKeyReturnsOriginal(t *testing.T) {
	fx := newFixture()
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: peonyPricing(5)}}

	in := InitiateInput{CustomerID: "cust-1", SelectedItemIDs: []string{"cart-1"}, IdempotencyKey: "idem-1"}
	first, err := fx.c.Initiate(context.Background(), in)
	require.NoError(t, err)

	// Prices move after the first call; the replay must not notice.
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: func() domain.ProductPricing {
		p := peonyPricing(5)
		p.VariantPrice = fptr(95)
		return p
	}()}}

	second, err := fx.c.Initiate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.IsExisting)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, 1, fx.sessions.createN)
}

func TestInitiate_ReplayHitsDBWhenCacheCold(t *testing.T) {
	fx := newFixture()
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: peonyPricing(5)}}

	in := InitiateInput{CustomerID: "cust-1", SelectedItemIDs: []string{"cart-1"}, IdempotencyKey: "idem-1"}
	first, err := fx.c.Initiate(context.Background(), in)
	require.NoError(t, err)

	// Redis flushed; the unique-key row still answers the replay.
	fx.idem.vals = map[string]string{}

	second, err := fx.c.Initiate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.IsExisting)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestInitiate_ConcurrentDuplicateConvergesOnWinner(t *testing.T) {
	fx := newFixture()
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: peonyPricing(5)}}

	// Another request inserts the same key after our existence check.
	fx.sessions.onCreate = func() {
		fx.sessions.rows["winner"] = domain.CheckoutSession{
			ID:             "winner",
			CustomerID:     "cust-1",
			IdempotencyKey: "idem-1",
			TotalAmount:    60,
			Status:         domain.StatusInitiated,
			ExpiresAt:      time.Now().Add(domain.SessionTTL),
		}
	}

	out, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-1"},
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)
	assert.True(t, out.IsExisting)
	assert.Equal(t, "winner", out.SessionID)
}

func TestInitiate_EmptySelection(t *testing.T) {
	fx := newFixture()
	_, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:     "cust-1",
		IdempotencyKey: "idem-1",
	})
	assert.Equal(t, CodeInvalidRequest, flowCode(t, err))

	fx.cart.lines = nil
	_, err = fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-gone"},
		IdempotencyKey:  "idem-2",
	})
	assert.Equal(t, CodeEmptyCart, flowCode(t, err))
}

func TestInitiate_VariantlessLineSkipsStockGate(t *testing.T) {
	fx := newFixture()
	// No variant row means no tracked stock; the line must still check out.
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: domain.ProductPricing{
		ProductID: "prod-9",
		Name:      "Gift Card",
		BasePrice: 50,
	}}}

	out, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-1"},
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitiated, out.Status)
	assert.InDelta(t, 50.0, out.TotalAmount, 0.0001)
}

func TestInitiate_ShortfallCreatesNoSession(t *testing.T) {
	fx := newFixture()
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 3, Pricing: peonyPricing(1)}}

	_, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-1"},
		IdempotencyKey:  "idem-1",
	})
	assert.Equal(t, CodeInsufficientStock, flowCode(t, err))
	assert.Equal(t, 0, fx.sessions.createN)

	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	shortfalls, ok := fe.Details.([]domain.Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, 3, shortfalls[0].Requested)
	assert.Equal(t, 1, shortfalls[0].Available)
}

func TestGetSession_LazyExpiry(t *testing.T) {
	fx := newFixture()
	s := fx.seedSession(domain.StatusAwaitingPayment)

	fx.c.now = func() time.Time { return s.ExpiresAt.Add(time.Second) }

	_, err := fx.c.GetSession(context.Background(), s.ID)
	assert.Equal(t, CodeSessionExpired, flowCode(t, err))
	assert.Equal(t, domain.StatusExpired, fx.sessions.status(s.ID))
	assert.Equal(t, []string{domain.AuditCheckoutExpired}, fx.audit.actions())

	// The flip happens once; later reads see the stored EXPIRED row.
	_, err = fx.c.GetSession(context.Background(), s.ID)
	assert.Equal(t, CodeSessionExpired, flowCode(t, err))
	assert.Equal(t, []string{domain.AuditCheckoutExpired}, fx.audit.actions())
}

func TestGetSession_CompletedNeverExpires(t *testing.T) {
	fx := newFixture()
	s := fx.seedSession(domain.StatusCompleted)

	fx.c.now = func() time.Time { return s.ExpiresAt.Add(time.Hour) }

	got, err := fx.c.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestCancel(t *testing.T) {
	fx := newFixture()
	s := fx.seedSession(domain.StatusAwaitingPayment)

	require.NoError(t, fx.c.Cancel(context.Background(), s.ID))
	assert.Equal(t, domain.StatusCancelled, fx.sessions.status(s.ID))

	// Second cancel is a no-op, not an error.
	require.NoError(t, fx.c.Cancel(context.Background(), s.ID))
	assert.Equal(t, []string{domain.AuditCheckoutCancelled}, fx.audit.actions())
}

func TestCancel_CompletedRefused(t *testing.T) {
	fx := newFixture()
	s := fx.seedSession(domain.StatusCompleted)

	err := fx.c.Cancel(context.Background(), s.ID)
	assert.Equal(t, CodeCannotCancel, flowCode(t, err))
}

func TestCancel_Missing(t *testing.T) {
	fx := newFixture()
	err := fx.c.Cancel(context.Background(), "nope")
	assert.Equal(t, CodeSessionNotFound, flowCode(t, err))
}

func TestAuditFailuresNeverFailTheFlow(t *testing.T) {
	fx := newFixture()
	fx.audit.err = assert.AnError
	fx.cart.lines = []CartLine{{ItemID: "cart-1", Quantity: 1, Pricing: peonyPricing(5)}}

	out, err := fx.c.Initiate(context.Background(), InitiateInput{
		CustomerID:      "cust-1",
		SelectedItemIDs: []string{"cart-1"},
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)
	require.NoError(t, fx.c.Cancel(context.Background(), out.SessionID))
}
