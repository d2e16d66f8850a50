package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/logging"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
	"github.com/gin-gonic/gin"
)

// CheckoutService is what the handlers need from the orchestrator.
type CheckoutService interface {
	Initiate(ctx context.Context, in usecase.InitiateInput) (*usecase.InitiateOutput, error)
	GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	Status(ctx context.Context, sessionID string) (domain.Status, error)
	Validate(ctx context.Context, sessionID string) (*usecase.ValidateOutput, error)
	Pay(ctx context.Context, in usecase.PayInput) (*usecase.PayOutput, error)
	Complete(ctx context.Context, in usecase.CompleteInput) (*usecase.CompleteOutput, error)
	Cancel(ctx context.Context, sessionID string) error
	Methods() []string
}

type CheckoutHandler struct {
	svc CheckoutService
}

func NewCheckoutHandler(svc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

const (
	readTimeout = 3 * time.Second
	// payTimeout must exceed the orchestrator's gateway charge timeout.
	payTimeout = 50 * time.Second
)

// statusByCode maps flow error codes to HTTP statuses. Anything unmapped is
// an internal error.
var statusByCode = map[string]int{
	usecase.CodeInvalidRequest:        http.StatusBadRequest,
	usecase.CodeEmptyCart:             http.StatusBadRequest,
	usecase.CodeInsufficientStock:     http.StatusBadRequest,
	usecase.CodeSessionCompleted:      http.StatusBadRequest,
	usecase.CodeStockValidationFailed: http.StatusBadRequest,
	usecase.CodeInvalidPaymentMethod:  http.StatusBadRequest,
	usecase.CodeAlreadyCompleted:      http.StatusBadRequest,
	usecase.CodePaymentFailed:         http.StatusBadRequest,
	usecase.CodeGatewayTimeout:        http.StatusBadRequest,
	usecase.CodeCannotCancel:          http.StatusBadRequest,
	usecase.CodeSessionNotFound:       http.StatusNotFound,
	usecase.CodePaymentNotFound:       http.StatusNotFound,
	usecase.CodeSessionExpired:        http.StatusGone,
}

func respondErr(c *gin.Context, err error) {
	var fe *usecase.FlowError
	if errors.As(err, &fe) {
		status, ok := statusByCode[fe.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		body := gin.H{"success": false, "error": fe.Code, "message": fe.Message}
		if fe.Details != nil {
			body["details"] = fe.Details
		}
		c.JSON(status, body)
		return
	}
	logging.From(c).Error("checkout request failed", "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   usecase.CodeInternal,
		"message": "internal error",
	})
}

type initiateReq struct {
	CustomerID      string   `json:"customerId" binding:"required"`
	SelectedItemIDs []string `json:"selectedItemIds" binding:"required"`
	IdempotencyKey  string   `json:"idempotencyKey"`
}

func (h *CheckoutHandler) Initiate(c *gin.Context) {
	var req initiateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   usecase.CodeInvalidRequest,
			"message": "invalid request body",
		})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("X-Idempotency-Key")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.svc.Initiate(ctx, usecase.InitiateInput{
		CustomerID:      req.CustomerID,
		SelectedItemIDs: req.SelectedItemIDs,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	status := http.StatusCreated
	if out.IsExisting {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success":      true,
		"isExisting":   out.IsExisting,
		"sessionId":    out.SessionID,
		"status":       out.Status,
		"lockedPrices": out.LockedPrices,
		"totalAmount":  out.TotalAmount,
		"expiresAt":    out.ExpiresAt,
	})
}

func (h *CheckoutHandler) GetSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	s, err := h.svc.GetSession(ctx, c.Param("sessionId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": gin.H{
			"sessionId":    s.ID,
			"customerId":   s.CustomerID,
			"status":       s.Status,
			"lockedPrices": s.LockedPrices,
			"totalAmount":  s.TotalAmount,
			"expiresAt":    s.ExpiresAt,
			"createdAt":    s.CreatedAt,
		},
	})
}

// GetStatus is the lightweight polling read: status only, cache-first.
func (h *CheckoutHandler) GetStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	st, err := h.svc.Status(ctx, c.Param("sessionId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": st})
}

func (h *CheckoutHandler) Validate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.svc.Validate(ctx, c.Param("sessionId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	body := gin.H{"success": true, "status": out.Status}
	if len(out.PriceChanges) > 0 {
		body["priceChanges"] = out.PriceChanges
	}
	c.JSON(http.StatusOK, body)
}

type payReq struct {
	PaymentMethod  string `json:"paymentMethod" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func (h *CheckoutHandler) Pay(c *gin.Context) {
	var req payReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   usecase.CodeInvalidRequest,
			"message": "paymentMethod is required",
		})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("X-Idempotency-Key")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), payTimeout)
	defer cancel()

	out, err := h.svc.Pay(ctx, usecase.PayInput{
		SessionID:      c.Param("sessionId"),
		Method:         req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"isExisting": out.IsExisting,
		"paymentId":  out.PaymentID,
		"gatewayRef": out.GatewayRef,
		"status":     out.Status,
	})
}

type completeReq struct {
	PaymentID      string `json:"paymentId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func (h *CheckoutHandler) Complete(c *gin.Context) {
	var req completeReq
	// Body is optional: the session's own succeeded payment is the default.
	_ = c.ShouldBindJSON(&req)

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	out, err := h.svc.Complete(ctx, usecase.CompleteInput{
		SessionID:      c.Param("sessionId"),
		PaymentID:      req.PaymentID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	status := http.StatusCreated
	if out.IsExisting {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success":    true,
		"isExisting": out.IsExisting,
		"orderId":    out.OrderID,
	})
}

func (h *CheckoutHandler) Cancel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	defer cancel()

	if err := h.svc.Cancel(ctx, c.Param("sessionId")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": domain.StatusCancelled})
}

func (h *CheckoutHandler) ListMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "methods": h.svc.Methods()})
}
