package vnpay

import (
	"fmt"
	"strings"
	"time"

	"warimas-pay/internal/config"
	"warimas-pay/internal/logger"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

var supportedCurrencies = map[string]bool{
	"VND": true,
}

// PaymentRequest is one checkout attempt. Build it with RequestBuilder.NewRequest.
type PaymentRequest struct {
	OrderID     string
	Attempt     int
	Amount      int64
	Currency    string
	Description string
	Locale      string
	BankCode    string
	ClientIP    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// TxnRef is the reference the gateway echoes back for this attempt.
func (r PaymentRequest) TxnRef() string {
	return TxnRef(r.OrderID, r.Attempt)
}

type RequestBuilder struct {
	cfg   config.GatewayConfig
	clock clockz.Clock
}

func NewRequestBuilder(cfg config.GatewayConfig, clock clockz.Clock) *RequestBuilder {
	if clock == nil {
		clock = clockz.RealClock
	}
	if cfg.PaymentTTL <= 0 {
		cfg.PaymentTTL = 15 * time.Minute
	}
	return &RequestBuilder{cfg: cfg, clock: clock}
}

// NewRequest stamps createdAt with the builder clock and expiresAt with the
// configured TTL.
func (b *RequestBuilder) NewRequest(orderID string, amount int64, description, bankCode, clientIP string) PaymentRequest {
	now := b.clock.Now()
	return PaymentRequest{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    b.cfg.CurrCode,
		Description: description,
		Locale:      b.cfg.Locale,
		BankCode:    bankCode,
		ClientIP:    clientIP,
		CreatedAt:   now,
		ExpiresAt:   now.Add(b.cfg.PaymentTTL),
	}
}

// Build validates req and returns the signed redirect URL.
func (b *RequestBuilder) Build(req PaymentRequest) (string, SignedEnvelope, error) {
	log := logger.L().With(
		zap.String("order_id", req.OrderID),
		zap.String("txn_ref", req.TxnRef()),
		zap.Int64("amount", req.Amount),
	)

	if err := validateRequest(req); err != nil {
		log.Warn("rejected payment request", zap.Error(err))
		return "", SignedEnvelope{}, err
	}

	locale := req.Locale
	if locale == "" {
		locale = b.cfg.Locale
	}
	description := req.Description
	if description == "" {
		description = "Thanh toan don hang " + req.OrderID
	}

	params := PaymentParameters{
		Version:    b.cfg.Version,
		Command:    CommandPay,
		TmnCode:    b.cfg.TmnCode,
		Amount:     req.Amount,
		CurrCode:   req.Currency,
		TxnRef:     req.TxnRef(),
		OrderInfo:  description,
		OrderType:  b.cfg.OrderType,
		Locale:     locale,
		ReturnURL:  b.cfg.ReturnURL,
		IPAddr:     req.ClientIP,
		CreateDate: req.CreatedAt,
		ExpireDate: req.ExpiresAt,
		BankCode:   req.BankCode,
	}

	envelope := params.Params().Sign(b.cfg.HashSecret)
	redirect := b.cfg.PayURL + "?" + envelope.Query()

	log.Info("payment request built", zap.Time("expires_at", req.ExpiresAt))
	return redirect, envelope, nil
}

func validateRequest(req PaymentRequest) error {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return fmt.Errorf("%w: order id is empty", ErrInvalidRequest)
	case req.Attempt < 0:
		return fmt.Errorf("%w: negative attempt", ErrInvalidRequest)
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidRequest)
	case !supportedCurrencies[req.Currency]:
		return fmt.Errorf("%w: %w %q", ErrInvalidRequest, ErrUnsupportedCurrency, req.Currency)
	case !req.ExpiresAt.After(req.CreatedAt):
		return fmt.Errorf("%w: expiry must be after creation", ErrInvalidRequest)
	}
	return nil
}
