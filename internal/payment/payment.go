// internal/payment/payment.go
package payment

import (
	"context"

	"warimas-pay/internal/order"
	"warimas-pay/internal/vnpay"
)

// RequestBuilder produces signed redirect URLs for checkout attempts.
type RequestBuilder interface {
	NewRequest(orderID string, amount int64, description, bankCode, clientIP string) vnpay.PaymentRequest
	Build(req vnpay.PaymentRequest) (string, vnpay.SignedEnvelope, error)
}

// AttemptCloser fails a PENDING attempt whose window has passed.
type AttemptCloser interface {
	Expire(ctx context.Context, txn *Transaction) (bool, error)
}

// OrderReader is the part of the order service checkout needs.
type OrderReader interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

var (
	_ RequestBuilder      = (*vnpay.RequestBuilder)(nil)
	_ vnpay.RefundGateway = (*vnpay.RefundClient)(nil)
	_ OrderReader         = (order.Service)(nil)
	_ AttemptCloser       = (*Engine)(nil)
)
