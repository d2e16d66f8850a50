package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Supported payment methods. The external processor is mocked; COD settles
// out of band.
const (
	MethodMockCard   = "MOCK_CARD"
	MethodMockWallet = "MOCK_WALLET"
	MethodCOD        = "COD"
)

var chargeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_charges_total",
		Help: "Total charge attempts against the payment gateway",
	},
	[]string{"method", "outcome"},
)

// Decider lets tests and sandbox configs force charge outcomes.
type Decider func(req usecase.ChargeRequest) (ok bool, errCode, errMsg string)

// MockGateway simulates the external payment processor: fixed method set,
// configurable latency, deterministic outcomes via the Decider hook.
type MockGateway struct {
	methods map[string]struct{}
	latency time.Duration
	decide  Decider
}

type Option func(*MockGateway)

func WithLatency(d time.Duration) Option { return func(g *MockGateway) { g.latency = d } }
func WithDecider(d Decider) Option       { return func(g *MockGateway) { g.decide = d } }

func NewMockGateway(opts ...Option) *MockGateway {
	g := &MockGateway{
		methods: map[string]struct{}{
			MethodMockCard:   {},
			MethodMockWallet: {},
			MethodCOD:        {},
		},
		decide: defaultDecider,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *MockGateway) Supports(method string) bool {
	_, ok := g.methods[method]
	return ok
}

func (g *MockGateway) Methods() []string {
	return []string{MethodMockCard, MethodMockWallet, MethodCOD}
}

// Charge resolves within the caller's deadline or not at all: a cancelled
// context returns ctx.Err() and the caller treats it as a timeout failure.
func (g *MockGateway) Charge(ctx context.Context, req usecase.ChargeRequest) (usecase.ChargeResult, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			chargeTotal.WithLabelValues(req.Method, "timeout").Inc()
			return usecase.ChargeResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		chargeTotal.WithLabelValues(req.Method, "timeout").Inc()
		return usecase.ChargeResult{}, err
	}

	ok, code, msg := g.decide(req)
	if !ok {
		chargeTotal.WithLabelValues(req.Method, "declined").Inc()
		return usecase.ChargeResult{Success: false, ErrorCode: code, ErrorMessage: msg}, nil
	}
	chargeTotal.WithLabelValues(req.Method, "success").Inc()
	return usecase.ChargeResult{
		Success:    true,
		GatewayRef: fmt.Sprintf("TXN-%s", uuid.NewString()),
	}, nil
}

func defaultDecider(req usecase.ChargeRequest) (bool, string, string) {
	if req.Amount <= 0 {
		return false, "INVALID_AMOUNT", "charge amount must be positive"
	}
	return true, "", ""
}

var _ usecase.PaymentGateway = (*MockGateway)(nil)
