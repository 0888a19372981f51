package payment

import (
	"context"
	"errors"
	"fmt"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"
	"warimas-pay/internal/notification"
	"warimas-pay/internal/order"
	"warimas-pay/internal/transport"
	"warimas-pay/internal/utils"
	"warimas-pay/internal/vnpay"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

type Refunder struct {
	repo     Repository
	gateway  vnpay.RefundGateway
	clock    clockz.Clock
	notifier notification.Notifier
	locks    *keyedMutex
}

func NewRefunder(repo Repository, gateway vnpay.RefundGateway, clock clockz.Clock, notifier notification.Notifier) *Refunder {
	if clock == nil {
		clock = clockz.RealClock
	}
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Refunder{
		repo:     repo,
		gateway:  gateway,
		clock:    clock,
		notifier: notifier,
		locks:    newKeyedMutex(),
	}
}

// Refund returns amount of the order's settled payment to the customer. The
// requester and client address are taken from ctx.
func (r *Refunder) Refund(ctx context.Context, orderID string, amount int64, reason string) (*RefundOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "refund"),
		zap.String("order_id", orderID),
		zap.Int64("amount", amount),
	)

	unlock := r.locks.Lock(orderID)
	defer unlock()

	txn, err := r.eligible(ctx, orderID, amount)
	if err != nil {
		log.Warn("refund rejected", zap.Error(err))
		metrics.RefundsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	log = log.With(zap.String("transaction_id", txn.ID))

	requestedBy := utils.GetUserEmailFromContext(ctx)
	if requestedBy == "" {
		requestedBy = "system"
	}

	txnDate := txn.CreatedAt
	if txn.PaidAt != nil {
		txnDate = *txn.PaidAt
	}

	result, err := r.gateway.Refund(ctx, vnpay.RefundRequest{
		OrderID:              txn.OrderID,
		TxnRef:               txn.TxnRef,
		GatewayTransactionID: txn.GatewayTransactionID,
		TransactionDate:      txnDate,
		Amount:               amount,
		Full:                 amount == txn.Amount,
		Reason:               reason,
		CreatedBy:            requestedBy,
		ClientIP:             transport.ClientIP(ctx),
	})
	if err != nil {
		log.Error("refund call failed", zap.Error(err))
		metrics.RefundsTotal.WithLabelValues("gateway_error").Inc()
		return nil, err
	}
	if !result.Succeeded() {
		log.Warn("refund declined",
			zap.String("response_code", result.ResponseCode),
			zap.String("message", result.Message),
		)
		metrics.RefundsTotal.WithLabelValues("declined").Inc()
		return nil, fmt.Errorf("%w: %s %s", ErrRefundDeclined, result.ResponseCode, result.Message)
	}

	refund := &Refund{
		ID:                   uuid.New().String(),
		TransactionID:        txn.ID,
		OrderID:              txn.OrderID,
		Amount:               amount,
		Reason:               reason,
		TransactionType:      result.TransactionType,
		ResponseCode:         result.ResponseCode,
		GatewayTransactionID: result.GatewayTransactionID,
		RequestedBy:          requestedBy,
	}

	res, err := r.repo.RefundTransaction(ctx, refund)
	if err != nil {
		// The gateway already moved the money; the record must be repaired by hand.
		log.Error("refund accepted by gateway but not recorded",
			zap.String("refund_id", refund.ID),
			zap.String("request_id", result.RequestID),
			zap.Error(err),
		)
		metrics.RefundsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !res.Applied {
		log.Error("refund accepted by gateway but transaction already left SUCCESS",
			zap.String("request_id", result.RequestID),
		)
		metrics.RefundsTotal.WithLabelValues("conflict").Inc()
		return nil, ErrAlreadyRefunded
	}

	txn.Status = StatusRefunded
	if res.OrderUpdated {
		metrics.OrderTransitionsTotal.WithLabelValues(string(order.StatusCancelled)).Inc()
	} else {
		log.Warn("refund recorded but order could not be cancelled")
	}

	metrics.RefundsTotal.WithLabelValues("success").Inc()
	log.Info("refund recorded",
		zap.String("refund_id", refund.ID),
		zap.String("transaction_type", refund.TransactionType),
		zap.Bool("order_cancelled", res.OrderUpdated),
	)

	now := r.clock.Now()
	r.notifier.Notify(ctx, notification.PaymentRefunded, notification.Event{
		OrderID:       txn.OrderID,
		TransactionID: txn.ID,
		Amount:        amount,
		ResponseCode:  result.ResponseCode,
		Reason:        reason,
		OccurredAt:    now,
	})
	if res.OrderUpdated {
		r.notifier.Notify(ctx, notification.OrderCancelled, notification.Event{
			OrderID:    txn.OrderID,
			Reason:     reason,
			OccurredAt: now,
		})
	}

	return &RefundOutcome{
		Refund:         refund,
		Transaction:    txn,
		OrderCancelled: res.OrderUpdated,
	}, nil
}

// RefundFull refunds the whole settled amount of the order.
func (r *Refunder) RefundFull(ctx context.Context, orderID, reason string) (*RefundOutcome, error) {
	txn, err := r.settled(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return r.Refund(ctx, orderID, txn.Amount, reason)
}

// eligible checks the preconditions without touching the gateway.
func (r *Refunder) eligible(ctx context.Context, orderID string, amount int64) (*Transaction, error) {
	txn, err := r.settled(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn.Status == StatusRefunded {
		return nil, ErrAlreadyRefunded
	}
	if err := checkTransition(txn.Status, StatusRefunded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRefundable, err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be greater than zero", ErrInvalidRequest)
	}
	if amount > txn.Amount {
		return nil, fmt.Errorf("%w: %d > %d", ErrAmountExceedsOriginal, amount, txn.Amount)
	}
	return txn, nil
}

func (r *Refunder) settled(ctx context.Context, orderID string) (*Transaction, error) {
	txn, err := r.repo.SettledByOrder(ctx, orderID)
	if errors.Is(err, ErrTransactionNotFound) {
		return nil, fmt.Errorf("%w: order %s has no settled payment", ErrNotRefundable, orderID)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}
