package usecase

import (
	"context"
	"sync"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
)

// In-memory fakes for the orchestrator's ports, with error injection and
// call counting where the tests need it.

type fakeSessions struct {
	mu        sync.Mutex
	rows      map[string]domain.CheckoutSession
	createN   int
	createErr error

	// onCreate runs before the duplicate check, simulating a concurrent
	// writer slipping in between the existence check and the insert.
	onCreate func()
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]domain.CheckoutSession{}}
}

func (f *fakeSessions) Create(_ context.Context, s *domain.CheckoutSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createN++
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return f.createErr
	}
	for _, row := range f.rows {
		if row.IdempotencyKey == s.IdempotencyKey {
			return ErrDuplicateKey
		}
	}
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*domain.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := row
	return &cp, nil
}

func (f *fakeSessions) GetByIdemKey(_ context.Context, customerID, key string) (*domain.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.CustomerID == customerID && row.IdempotencyKey == key {
			cp := row
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeSessions) UpdateStatus(_ context.Context, id string, to domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = to
	f.rows[id] = row
	return nil
}

func (f *fakeSessions) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	f.rows[id] = row
	return true, nil
}

func (f *fakeSessions) status(id string) domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Status
}

func (f *fakeSessions) put(s domain.CheckoutSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = s
}

type fakePayments struct {
	mu   sync.Mutex
	rows map[string]domain.Payment

	// onCreate mirrors fakeSessions.onCreate for the payment insert race.
	onCreate func()
}

func newFakePayments() *fakePayments {
	return &fakePayments{rows: map[string]domain.Payment{}}
}

func (f *fakePayments) Create(_ context.Context, p *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onCreate != nil {
		f.onCreate()
	}
	for _, row := range f.rows {
		if row.IdempotencyKey == p.IdempotencyKey {
			return ErrDuplicateKey
		}
	}
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := row
	return &cp, nil
}

func (f *fakePayments) GetByIdemKey(_ context.Context, key string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.IdempotencyKey == key {
			cp := row
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakePayments) GetSucceededBySession(_ context.Context, sessionID string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.SessionID == sessionID && row.Status == domain.PaymentSucceeded {
			cp := row
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakePayments) CountBySession(_ context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (f *fakePayments) MarkSucceeded(_ context.Context, id, gatewayRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = domain.PaymentSucceeded
	row.GatewayRef = gatewayRef
	f.rows[id] = row
	return nil
}

func (f *fakePayments) MarkFailed(_ context.Context, id, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = domain.PaymentFailed
	row.ErrorMessage = errMsg
	f.rows[id] = row
	return nil
}

func (f *fakePayments) MarkSettled(_ context.Context, gatewayRef string) (bool, error) {
	return false, nil
}

func (f *fakePayments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakePayments) put(p domain.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = p
}

type fakeOrders struct {
	byKey map[string]domain.Order // customerID|key
}

func newFakeOrders() *fakeOrders { return &fakeOrders{byKey: map[string]domain.Order{}} }

func (f *fakeOrders) GetByCustomerAndIdemKey(_ context.Context, customerID, key string) (*domain.Order, error) {
	o, ok := f.byKey[customerID+"|"+key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

type fakeCommitter struct {
	orderID string
	err     error
	calls   int
}

func (f *fakeCommitter) Commit(_ context.Context, s *domain.CheckoutSession, p *domain.Payment) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.orderID, nil
}

type fakeCart struct {
	lines   []CartLine
	err     error
	removed []string
}

func (f *fakeCart) SelectedItems(_ context.Context, _ string, _ []string) ([]CartLine, error) {
	return f.lines, f.err
}

func (f *fakeCart) RemoveItems(_ context.Context, _ string, itemIDs []string) error {
	f.removed = append(f.removed, itemIDs...)
	return nil
}

type fakeCatalog struct {
	pricing map[string]domain.ProductPricing // by product id
	err     error
}

func (f *fakeCatalog) LivePricing(_ context.Context, productID string, _ *string) (domain.ProductPricing, error) {
	if f.err != nil {
		return domain.ProductPricing{}, f.err
	}
	p, ok := f.pricing[productID]
	if !ok {
		return domain.ProductPricing{}, ErrNotFound
	}
	return p, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	result ChargeResult
	err    error
	block  bool // wait for ctx cancellation before returning
}

func (f *fakeGateway) Supports(method string) bool {
	switch method {
	case "MOCK_CARD", "MOCK_WALLET", "COD":
		return true
	}
	return false
}

func (f *fakeGateway) Methods() []string { return []string{"MOCK_CARD", "MOCK_WALLET", "COD"} }

func (f *fakeGateway) Charge(ctx context.Context, _ ChargeRequest) (ChargeResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ChargeResult{}, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (f *fakeAudit) Record(_ context.Context, ev domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Action)
	}
	return out
}

type fakeIdem struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeIdem() *fakeIdem { return &fakeIdem{vals: map[string]string{}} }

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[scope+":"+key]
	return v, ok, nil
}

type fakeCache struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{vals: map[string]string{}} }

func (f *fakeCache) SetStatus(_ context.Context, sessionID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[sessionID] = status
	return nil
}

func (f *fakeCache) GetStatus(_ context.Context, sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
