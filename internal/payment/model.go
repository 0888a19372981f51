package payment

import (
	"encoding/json"
	"time"

	"warimas-pay/internal/vnpay"
)

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusSuccess  TransactionStatus = "SUCCESS"
	StatusFailed   TransactionStatus = "FAILED"
	StatusRefunded TransactionStatus = "REFUNDED"
)

// Transaction is one checkout attempt for an order. Amount never changes
// after creation.
type Transaction struct {
	ID                   string
	OrderID              string
	TxnRef               string
	Attempt              int
	Amount               int64
	Currency             string
	BankCode             string
	GatewayTransactionID string
	ResponseCode         string
	Status               TransactionStatus
	CreatedAt            time.Time
	ExpiresAt            time.Time
	PaidAt               *time.Time
	CompletedAt          *time.Time
}

func (t *Transaction) Expired(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// Completion is the PENDING to SUCCESS/FAILED write.
type Completion struct {
	TransactionID        string
	OrderID              string
	Status               TransactionStatus
	GatewayTransactionID string
	BankCode             string
	ResponseCode         string
	InvoiceNumber        string
	PaidAt               *time.Time
	CompletedAt          time.Time
}

// TransitionResult reports what a conditional write changed.
type TransitionResult struct {
	Applied      bool
	OrderUpdated bool
}

// ReconciliationOutcome is the result of handling one gateway callback.
type ReconciliationOutcome struct {
	Transaction *Transaction
	Callback    *vnpay.CallbackOutcome
	Duplicate   bool
}

// Refund is an immutable record of a refund the gateway accepted.
type Refund struct {
	ID                   string
	TransactionID        string
	OrderID              string
	Amount               int64
	Reason               string
	TransactionType      string
	ResponseCode         string
	GatewayTransactionID string
	RequestedBy          string
	CreatedAt            time.Time
}

type RefundOutcome struct {
	Refund         *Refund
	Transaction    *Transaction
	OrderCancelled bool
}

// CallbackRecord is the audit row for one inbound callback.
type CallbackRecord struct {
	OrderID        string
	TxnRef         string
	TransactionNo  string
	ResponseCode   string
	SignatureValid bool
	Payload        json.RawMessage
}

// CallbackReceipt is what the audit log knows about a delivery. ID is 0 when
// the row already existed.
type CallbackReceipt struct {
	ID        int64
	Duplicate bool
	Processed bool
}
