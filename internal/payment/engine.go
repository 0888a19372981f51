package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"warimas-pay/internal/config"
	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"
	"warimas-pay/internal/notification"
	"warimas-pay/internal/order"
	"warimas-pay/internal/utils"
	"warimas-pay/internal/vnpay"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Engine applies verified gateway callbacks to stored transactions and
// orders. Every PENDING to SUCCESS/FAILED write goes through it, including
// the close of an attempt whose window passed without a callback.
type Engine struct {
	repo     Repository
	secret   string
	clock    clockz.Clock
	notifier notification.Notifier
}

func NewEngine(repo Repository, cfg config.GatewayConfig, clock clockz.Clock, notifier notification.Notifier) *Engine {
	if clock == nil {
		clock = clockz.RealClock
	}
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &Engine{
		repo:     repo,
		secret:   cfg.HashSecret,
		clock:    clock,
		notifier: notifier,
	}
}

// HandleCallback verifies and applies one callback. Repeated deliveries of
// an applied callback return the recorded outcome with Duplicate set.
func (e *Engine) HandleCallback(ctx context.Context, values url.Values) (*ReconciliationOutcome, error) {
	cb, decodeErr := vnpay.DecodeCallback(e.secret, values)
	ctx = logger.WithFields(ctx, zap.String("txn_ref", cb.TxnRef))
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "reconciliation"),
		zap.String("order_id", cb.OrderID),
		zap.String("transaction_no", cb.GatewayTransactionID),
		zap.String("response_code", cb.ResponseCode),
	)

	receipt := e.audit(ctx, cb)
	callbackID := receipt.ID

	if decodeErr != nil {
		if errors.Is(decodeErr, vnpay.ErrSignatureInvalid) {
			log.Warn("callback signature mismatch", logger.RedactParams("params", cb.RawParameters))
			e.fail(ctx, callbackID, "signature_invalid", decodeErr)
			return nil, ErrSignatureInvalid
		}
		log.Warn("malformed callback", zap.Error(decodeErr))
		e.fail(ctx, callbackID, "malformed", decodeErr)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCallback, decodeErr)
	}

	txn, err := e.repo.ByTxnRef(ctx, cb.TxnRef)
	if errors.Is(err, ErrTransactionNotFound) {
		log.Warn("callback for unknown order")
		e.fail(ctx, callbackID, "unknown_order", err)
		return nil, ErrUnknownOrder
	}
	if err != nil {
		log.Error("failed to load transaction", zap.Error(err))
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	log = log.With(zap.String("transaction_id", txn.ID))

	if cb.Amount != txn.Amount {
		log.Warn("callback amount mismatch",
			zap.Int64("callback_amount", cb.Amount),
			zap.Int64("expected_amount", txn.Amount),
		)
		err := fmt.Errorf("%w: %w: %d, expected %d", ErrInvalidCallback, ErrAmountMismatch, cb.Amount, txn.Amount)
		e.fail(ctx, callbackID, "amount_mismatch", err)
		return nil, err
	}

	if txn.Status != StatusPending || receipt.Processed {
		return e.duplicate(ctx, callbackID, txn, cb)
	}

	arrived := e.clock.Now()
	at := cb.PayDate
	if at.IsZero() {
		at = arrived
	}
	if txn.Expired(at) {
		log.Warn("callback after payment expiry",
			zap.Time("expires_at", txn.ExpiresAt),
			zap.Time("paid_at", at),
			zap.Bool("gateway_success", cb.Succeeded()),
		)
		err := fmt.Errorf("%w: expired at %s", ErrCallbackExpired, txn.ExpiresAt.Format(vnpay.TimeLayout))
		e.fail(ctx, callbackID, "expired", err)
		return nil, err
	}

	completion := Completion{
		TransactionID:        txn.ID,
		OrderID:              txn.OrderID,
		Status:               StatusFailed,
		GatewayTransactionID: cb.GatewayTransactionID,
		BankCode:             cb.BankCode,
		ResponseCode:         cb.ResponseCode,
		CompletedAt:          arrived,
	}
	if !cb.PayDate.IsZero() {
		paid := cb.PayDate
		completion.PaidAt = &paid
	}
	if cb.Succeeded() {
		completion.Status = StatusSuccess
		completion.InvoiceNumber = utils.GenerateInvoiceNumber(arrived)
	}

	res, err := e.repo.CompleteTransaction(ctx, completion)
	if err != nil {
		log.Error("failed to apply callback", zap.Error(err))
		metrics.CallbacksTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !res.Applied {
		// another delivery won the PENDING transition
		current, err := e.repo.ByTxnRef(ctx, cb.TxnRef)
		if err != nil {
			return nil, err
		}
		return e.duplicate(ctx, callbackID, current, cb)
	}

	txn.Status = completion.Status
	txn.GatewayTransactionID = completion.GatewayTransactionID
	txn.ResponseCode = completion.ResponseCode
	txn.PaidAt = completion.PaidAt
	txn.CompletedAt = &arrived
	if completion.BankCode != "" {
		txn.BankCode = completion.BankCode
	}

	if res.OrderUpdated {
		metrics.OrderTransitionsTotal.WithLabelValues(string(order.StatusConfirmed)).Inc()
	}
	if completion.Status == StatusSuccess && !res.OrderUpdated {
		log.Warn("payment settled but order was not pending")
	}

	e.processed(ctx, callbackID)
	metrics.CallbacksTotal.WithLabelValues(string(txn.Status)).Inc()
	log.Info("callback applied",
		zap.String("status", string(txn.Status)),
		zap.String("message", vnpay.LookupPaymentCode(cb.ResponseCode).Message),
	)

	kind := notification.PaymentFailed
	if txn.Status == StatusSuccess {
		kind = notification.PaymentSucceeded
	}
	e.notifier.Notify(ctx, kind, notification.Event{
		OrderID:       txn.OrderID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		ResponseCode:  txn.ResponseCode,
		OccurredAt:    arrived,
	})

	return &ReconciliationOutcome{Transaction: txn, Callback: cb}, nil
}

// duplicate answers a redelivered callback from the recorded state. The
// redelivery must agree with what was recorded.
func (e *Engine) duplicate(ctx context.Context, callbackID int64, txn *Transaction, cb *vnpay.CallbackOutcome) (*ReconciliationOutcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", txn.OrderID),
		zap.String("transaction_id", txn.ID),
		zap.String("status", string(txn.Status)),
	)

	if cb.Amount != txn.Amount {
		err := fmt.Errorf("%w: %w: %d, recorded %d", ErrInvalidCallback, ErrAmountMismatch, cb.Amount, txn.Amount)
		e.fail(ctx, callbackID, "amount_mismatch", err)
		return nil, err
	}
	if txn.GatewayTransactionID != "" && cb.GatewayTransactionID != txn.GatewayTransactionID {
		log.Warn("duplicate callback diverges from recorded transaction",
			zap.String("callback_transaction_no", cb.GatewayTransactionID),
			zap.String("recorded_transaction_no", txn.GatewayTransactionID),
		)
		err := fmt.Errorf("%w: transaction no %q, recorded %q", ErrInvalidCallback, cb.GatewayTransactionID, txn.GatewayTransactionID)
		e.fail(ctx, callbackID, "divergent_duplicate", err)
		return nil, err
	}

	log.Info("duplicate callback ignored")
	e.processed(ctx, callbackID)
	metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()

	return &ReconciliationOutcome{Transaction: txn, Callback: cb, Duplicate: true}, nil
}

// audit stores the raw callback. Failures are logged and never block
// reconciliation; 0 means there is no row to update afterwards.
func (e *Engine) audit(ctx context.Context, cb *vnpay.CallbackOutcome) CallbackReceipt {
	log := logger.FromCtx(ctx)

	payload, err := json.Marshal(cb.RawParameters)
	if err != nil {
		log.Warn("failed to encode callback for audit", zap.Error(err))
		return CallbackReceipt{}
	}

	receipt, err := e.repo.SaveCallback(ctx, CallbackRecord{
		OrderID:        cb.OrderID,
		TxnRef:         cb.TxnRef,
		TransactionNo:  cb.GatewayTransactionID,
		ResponseCode:   cb.ResponseCode,
		SignatureValid: cb.SignatureValid,
		Payload:        payload,
	})
	if err != nil {
		log.Warn("failed to save callback", zap.Error(err))
		return CallbackReceipt{}
	}
	if receipt.Duplicate {
		log.Info("callback already on file", zap.Bool("processed", receipt.Processed))
	}
	return receipt
}

// Expire fails a PENDING attempt whose payment window has passed. It reports
// false when the attempt is still open or a callback settled it first.
func (e *Engine) Expire(ctx context.Context, txn *Transaction) (bool, error) {
	now := e.clock.Now()
	if txn.Status != StatusPending || !txn.Expired(now) {
		return false, nil
	}

	res, err := e.repo.CompleteTransaction(ctx, Completion{
		TransactionID: txn.ID,
		OrderID:       txn.OrderID,
		Status:        StatusFailed,
		CompletedAt:   now,
	})
	if err != nil {
		return false, err
	}
	if !res.Applied {
		return false, nil
	}

	metrics.CallbacksTotal.WithLabelValues("expired_closed").Inc()
	logger.FromCtx(ctx).Info("expired payment attempt closed",
		zap.String("order_id", txn.OrderID),
		zap.String("transaction_id", txn.ID),
		zap.String("txn_ref", txn.TxnRef),
	)
	return true, nil
}

func (e *Engine) processed(ctx context.Context, callbackID int64) {
	if callbackID == 0 {
		return
	}
	if err := e.repo.MarkCallbackProcessed(ctx, callbackID); err != nil {
		logger.FromCtx(ctx).Warn("failed to mark callback processed", zap.Int64("callback_id", callbackID), zap.Error(err))
	}
}

func (e *Engine) fail(ctx context.Context, callbackID int64, result string, cause error) {
	metrics.CallbacksTotal.WithLabelValues(result).Inc()
	if callbackID == 0 {
		return
	}
	if err := e.repo.MarkCallbackFailed(ctx, callbackID, cause.Error()); err != nil {
		logger.FromCtx(ctx).Warn("failed to mark callback failed", zap.Int64("callback_id", callbackID), zap.Error(err))
	}
}
