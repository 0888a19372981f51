package payment

import (
	"context"
	"errors"
	"fmt"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"
	"warimas-pay/internal/order"
	"warimas-pay/internal/vnpay"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

type Checkout struct {
	orders  OrderReader
	repo    Repository
	builder RequestBuilder
	closer  AttemptCloser
	clock   clockz.Clock
	locks   *keyedMutex
}

func NewCheckout(orders OrderReader, repo Repository, builder RequestBuilder, closer AttemptCloser, clock clockz.Clock) *Checkout {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Checkout{
		orders:  orders,
		repo:    repo,
		builder: builder,
		closer:  closer,
		clock:   clock,
		locks:   newKeyedMutex(),
	}
}

// Start opens a payment attempt for a PENDING order and returns the signed
// gateway URL the customer is redirected to.
func (c *Checkout) Start(ctx context.Context, orderID, clientIP, bankCode string) (string, *Transaction, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("order_id", orderID),
	)

	if !ValidMethod(bankCode) {
		metrics.PaymentRequestsTotal.WithLabelValues("rejected").Inc()
		return "", nil, fmt.Errorf("%w: %w %q", ErrInvalidRequest, ErrUnsupportedMethod, bankCode)
	}

	unlock := c.locks.Lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	if o.Status != order.StatusPending {
		metrics.PaymentRequestsTotal.WithLabelValues("rejected").Inc()
		return "", nil, fmt.Errorf("%w: status %s", ErrOrderNotPayable, o.Status)
	}

	attempt, err := c.closePrevious(ctx, orderID)
	if err != nil {
		metrics.PaymentRequestsTotal.WithLabelValues("rejected").Inc()
		return "", nil, err
	}

	req := c.builder.NewRequest(o.ID, o.TotalAfterTax, "", bankCode, clientIP)
	req.Attempt = attempt
	redirect, _, err := c.builder.Build(req)
	if err != nil {
		metrics.PaymentRequestsTotal.WithLabelValues("invalid").Inc()
		return "", nil, err
	}

	txn := &Transaction{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		TxnRef:    req.TxnRef(),
		Attempt:   req.Attempt,
		Amount:    req.Amount,
		Currency:  req.Currency,
		BankCode:  req.BankCode,
		Status:    StatusPending,
		CreatedAt: req.CreatedAt,
		ExpiresAt: req.ExpiresAt,
	}
	if err := c.repo.CreateTransaction(ctx, txn); err != nil {
		log.Error("failed to persist payment transaction", zap.Error(err))
		metrics.PaymentRequestsTotal.WithLabelValues("error").Inc()
		return "", nil, err
	}

	metrics.PaymentRequestsTotal.WithLabelValues("created").Inc()
	log.Info("checkout started",
		zap.String("transaction_id", txn.ID),
		zap.String("txn_ref", txn.TxnRef),
		zap.Int64("amount", txn.Amount),
		zap.Time("expires_at", txn.ExpiresAt),
	)
	return redirect, txn, nil
}

// closePrevious refuses a new attempt while an earlier one is settled or
// still open, has the engine fail an open attempt whose window has passed,
// and returns the number of the next attempt.
func (c *Checkout) closePrevious(ctx context.Context, orderID string) (int, error) {
	prev, err := c.repo.LatestByOrder(ctx, orderID)
	if errors.Is(err, ErrTransactionNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	switch prev.Status {
	case StatusSuccess, StatusRefunded:
		return 0, ErrAlreadyPaid
	case StatusFailed:
		return prev.Attempt + 1, nil
	}

	if !prev.Expired(c.clock.Now()) {
		return 0, fmt.Errorf("%w: expires at %s", ErrPaymentInProgress, prev.ExpiresAt.Format(vnpay.TimeLayout))
	}

	closed, err := c.closer.Expire(ctx, prev)
	if err != nil {
		return 0, err
	}
	if !closed {
		// a callback settled it meanwhile; decide again from the new state
		return c.closePrevious(ctx, orderID)
	}
	return prev.Attempt + 1, nil
}
