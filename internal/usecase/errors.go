package usecase

// Error codes surfaced to clients. Every anticipated failure mode has one;
// anything else collapses to CodeInternal at the HTTP boundary.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeEmptyCart             = "EMPTY_CART"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionExpired        = "SESSION_EXPIRED"
	CodeSessionCompleted      = "SESSION_COMPLETED"
	CodeStockValidationFailed = "STOCK_VALIDATION_FAILED"
	CodeInvalidPaymentMethod  = "INVALID_PAYMENT_METHOD"
	CodeAlreadyCompleted      = "ALREADY_COMPLETED"
	CodePaymentFailed         = "PAYMENT_FAILED"
	CodeGatewayTimeout        = "GATEWAY_TIMEOUT"
	CodePaymentNotFound       = "PAYMENT_NOT_FOUND"
	CodeCannotCancel          = "CANNOT_CANCEL"
	CodeInternal              = "INTERNAL_ERROR"
)

// FlowError is a recoverable checkout failure with a stable client-facing
// code. Details carries structured payloads (shortfall lists, payment ids).
type FlowError struct {
	Code    string
	Message string
	Details any
}

func (e *FlowError) Error() string {
	return e.Code + ": " + e.Message
}

func flowErr(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

func flowErrWith(code, message string, details any) *FlowError {
	return &FlowError{Code: code, Message: message, Details: details}
}
