package payment

import (
	"errors"

	"warimas-pay/internal/vnpay"
)

var (
	ErrUnknownOrder          = errors.New("no payment transaction for order")
	ErrInvalidCallback       = errors.New("callback does not match recorded transaction")
	ErrInvalidTransition     = errors.New("invalid payment status transition")
	ErrAmountMismatch        = errors.New("amount mismatch")
	ErrNotRefundable         = errors.New("payment is not refundable")
	ErrAlreadyRefunded       = errors.New("payment already refunded")
	ErrAmountExceedsOriginal = errors.New("refund amount exceeds original payment")
	ErrCallbackExpired       = errors.New("callback arrived after payment expiry")
	ErrRefundDeclined        = errors.New("refund declined by gateway")
	ErrAlreadyPaid           = errors.New("order already paid")
	ErrPaymentInProgress     = errors.New("payment already in progress")
	ErrOrderNotPayable       = errors.New("order is not awaiting payment")
	ErrTransactionNotFound   = errors.New("payment transaction not found")
	ErrUnsupportedMethod     = errors.New("unsupported payment method")
)

// Gateway errors surface unchanged so callers can match either package.
var (
	ErrSignatureInvalid   = vnpay.ErrSignatureInvalid
	ErrInvalidRequest     = vnpay.ErrInvalidRequest
	ErrGatewayUnavailable = vnpay.ErrGatewayUnavailable
)
