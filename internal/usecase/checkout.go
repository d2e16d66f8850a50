package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
)

const (
	idemScopeSession = "checkout"
	idemScopePayment = "payment"

	defaultChargeTimeout = 45 * time.Second
)

// Checkout orchestrates the checkout state machine:
// initiate -> validate -> pay -> complete, with cancel and lazy expiry.
type Checkout struct {
	sessions  SessionRepo
	payments  PaymentRepo
	orders    OrderRepo
	committer CheckoutCommitter
	cart      CartReader
	catalog   CatalogReader
	gateway   PaymentGateway
	audit     AuditSink
	idem      IdempotencyStore
	cache     StatusCache

	chargeTimeout time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// Deps bundles collaborators for NewCheckout. All fields are required except
// Cache, which is best-effort.
type Deps struct {
	Sessions  SessionRepo
	Payments  PaymentRepo
	Orders    OrderRepo
	Committer CheckoutCommitter
	Cart      CartReader
	Catalog   CatalogReader
	Gateway   PaymentGateway
	Audit     AuditSink
	Idem      IdempotencyStore
	Cache     StatusCache

	// ChargeTimeout bounds gateway calls; zero means the 45s default.
	ChargeTimeout time.Duration
}

func NewCheckout(d Deps) *Checkout {
	if d.ChargeTimeout <= 0 {
		d.ChargeTimeout = defaultChargeTimeout
	}
	return &Checkout{
		sessions:      d.Sessions,
		payments:      d.Payments,
		orders:        d.Orders,
		committer:     d.Committer,
		cart:          d.Cart,
		catalog:       d.Catalog,
		gateway:       d.Gateway,
		audit:         d.Audit,
		idem:          d.Idem,
		cache:         d.Cache,
		chargeTimeout: d.ChargeTimeout,
		now:           time.Now,
		log:           logging.New("checkout"),
	}
}

// loadSession fetches a session and applies the lazy expiry check. Sessions
// past their TTL (other than COMPLETED) flip to EXPIRED on this read and the
// read fails with CodeSessionExpired.
func (c *Checkout) loadSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	s, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, flowErr(CodeSessionNotFound, "checkout session not found")
		}
		return nil, err
	}
	if s.Expired(c.now()) {
		if s.Status != domain.StatusExpired {
			if err := c.sessions.UpdateStatus(ctx, s.ID, domain.StatusExpired); err != nil {
				return nil, err
			}
			c.recordAudit(ctx, domain.AuditEvent{
				SessionID:  s.ID,
				CustomerID: s.CustomerID,
				Action:     domain.AuditCheckoutExpired,
				FromStatus: s.Status.String(),
				ToStatus:   domain.StatusExpired.String(),
				At:         c.now(),
			})
			s.Status = domain.StatusExpired
			c.cacheStatus(ctx, s.ID, s.Status)
		}
		return nil, flowErr(CodeSessionExpired, "checkout session has expired, restart checkout")
	}
	return s, nil
}

// transition moves the session to a new status, enforcing the state machine.
func (c *Checkout) transition(ctx context.Context, s *domain.CheckoutSession, to domain.Status, action string) error {
	if !domain.CanTransition(s.Status, to) {
		return domain.ErrInvalidTransition
	}
	if err := c.sessions.UpdateStatus(ctx, s.ID, to); err != nil {
		return err
	}
	from := s.Status
	s.Status = to
	s.UpdatedAt = c.now()
	c.cacheStatus(ctx, s.ID, to)
	if action != "" {
		c.recordAudit(ctx, domain.AuditEvent{
			SessionID:  s.ID,
			CustomerID: s.CustomerID,
			Action:     action,
			FromStatus: from.String(),
			ToStatus:   to.String(),
			At:         c.now(),
		})
	}
	return nil
}

// recordAudit never fails the flow; sink errors are logged and dropped.
func (c *Checkout) recordAudit(ctx context.Context, ev domain.AuditEvent) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Record(ctx, ev); err != nil {
		c.log.Warn("audit record failed", "session_id", ev.SessionID, "action", ev.Action, "err", err)
	}
}

func (c *Checkout) cacheStatus(ctx context.Context, sessionID string, status domain.Status) {
	if c.cache == nil {
		return
	}
	_ = c.cache.SetStatus(ctx, sessionID, status.String())
}
