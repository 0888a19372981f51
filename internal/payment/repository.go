package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/order"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	LatestByOrder(ctx context.Context, orderID string) (*Transaction, error)
	// ByTxnRef returns the attempt the gateway reference names.
	ByTxnRef(ctx context.Context, txnRef string) (*Transaction, error)
	// SettledByOrder returns the order's SUCCESS or REFUNDED transaction.
	SettledByOrder(ctx context.Context, orderID string) (*Transaction, error)

	// CompleteTransaction moves a PENDING transaction to SUCCESS or FAILED.
	// A SUCCESS also confirms a PENDING order in the same database
	// transaction.
	CompleteTransaction(ctx context.Context, c Completion) (TransitionResult, error)

	// RefundTransaction moves a SUCCESS transaction to REFUNDED, records the
	// refund and cancels the order when it can still be cancelled.
	RefundTransaction(ctx context.Context, r *Refund) (TransitionResult, error)

	// SaveCallback stores a delivery once per attempt, gateway number and
	// response code. A repeat reports whether the first one was processed.
	SaveCallback(ctx context.Context, rec CallbackRecord) (CallbackReceipt, error)
	MarkCallbackProcessed(ctx context.Context, callbackID int64) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error
}

const callbackProvider = "VNPAY"

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const transactionColumns = `
	id, order_id, txn_ref, attempt, amount, currency, bank_code, gateway_transaction_id,
	response_code, status, created_at, expires_at, paid_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		t                   Transaction
		bankCode, gwTxn, rc sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.OrderID, &t.TxnRef, &t.Attempt, &t.Amount, &t.Currency, &bankCode, &gwTxn,
		&rc, &t.Status, &t.CreatedAt, &t.ExpiresAt, &t.PaidAt, &t.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	t.BankCode = bankCode.String
	t.GatewayTransactionID = gwTxn.String
	t.ResponseCode = rc.String
	return &t, nil
}

func (r *repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transactions (
			id, order_id, txn_ref, attempt, amount, currency, bank_code, status, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
	`,
		t.ID, t.OrderID, t.TxnRef, t.Attempt, t.Amount, t.Currency, t.BankCode, string(t.Status), t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

func (r *repository) LatestByOrder(ctx context.Context, orderID string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE order_id = $1
		ORDER BY attempt DESC
		LIMIT 1
	`, orderID)
	return scanTransaction(row)
}

func (r *repository) ByTxnRef(ctx context.Context, txnRef string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE txn_ref = $1
	`, txnRef)
	return scanTransaction(row)
}

func (r *repository) SettledByOrder(ctx context.Context, orderID string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE order_id = $1 AND status = ANY($2)
		LIMIT 1
	`, orderID, pq.Array([]string{string(StatusSuccess), string(StatusRefunded)}))
	return scanTransaction(row)
}

func (r *repository) CompleteTransaction(ctx context.Context, c Completion) (TransitionResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("transaction_id", c.TransactionID),
		zap.String("order_id", c.OrderID),
	)

	var res TransitionResult
	if err := checkTransition(StatusPending, c.Status); err != nil {
		return res, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	out, err := tx.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $1,
		    gateway_transaction_id = NULLIF($2, ''),
		    bank_code = COALESCE(NULLIF($3, ''), bank_code),
		    response_code = NULLIF($4, ''),
		    paid_at = $5,
		    completed_at = $6,
		    updated_at = now()
		WHERE id = $7 AND status = $8
	`,
		string(c.Status), c.GatewayTransactionID, c.BankCode, c.ResponseCode,
		c.PaidAt, c.CompletedAt, c.TransactionID, string(StatusPending),
	)
	if err != nil {
		log.Error("failed to complete transaction", zap.Error(err))
		return res, err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return res, err
	}
	if n == 0 {
		return res, nil
	}
	res.Applied = true

	if c.Status == StatusSuccess {
		out, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, invoice_number = NULLIF($2, ''), updated_at = now()
			WHERE id = $3 AND status = ANY($4)
		`,
			string(order.StatusConfirmed), c.InvoiceNumber, c.OrderID,
			pq.Array(orderStatuses(order.SourcesOf(order.ActionConfirm))),
		)
		if err != nil {
			log.Error("failed to confirm order", zap.Error(err))
			return TransitionResult{}, err
		}
		n, err = out.RowsAffected()
		if err != nil {
			return TransitionResult{}, err
		}
		res.OrderUpdated = n == 1
	}

	if err := tx.Commit(); err != nil {
		return TransitionResult{}, err
	}
	return res, nil
}

func (r *repository) RefundTransaction(ctx context.Context, rf *Refund) (TransitionResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("transaction_id", rf.TransactionID),
		zap.String("order_id", rf.OrderID),
	)

	var res TransitionResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	out, err := tx.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, string(StatusRefunded), rf.TransactionID, string(StatusSuccess))
	if err != nil {
		log.Error("failed to mark transaction refunded", zap.Error(err))
		return res, err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return res, err
	}
	if n == 0 {
		return res, nil
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payment_refunds (
			id, transaction_id, order_id, amount, reason, transaction_type,
			response_code, gateway_transaction_id, requested_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING created_at
	`,
		rf.ID, rf.TransactionID, rf.OrderID, rf.Amount, rf.Reason, rf.TransactionType,
		rf.ResponseCode, rf.GatewayTransactionID, rf.RequestedBy,
	).Scan(&rf.CreatedAt)
	if err != nil {
		log.Error("failed to insert refund record", zap.Error(err))
		return res, err
	}

	out, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`,
		string(order.StatusCancelled), rf.OrderID,
		pq.Array(orderStatuses(order.SourcesOf(order.ActionCancel))),
	)
	if err != nil {
		log.Error("failed to cancel order", zap.Error(err))
		return res, err
	}
	n, err = out.RowsAffected()
	if err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}
	return TransitionResult{Applied: true, OrderUpdated: n == 1}, nil
}

func (r *repository) SaveCallback(ctx context.Context, rec CallbackRecord) (CallbackReceipt, error) {
	const q = `
	INSERT INTO payment_callbacks (
		provider,
		order_id,
		txn_ref,
		transaction_no,
		response_code,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (provider, txn_ref, transaction_no, response_code)
	DO NOTHING
	RETURNING id;
	`

	var receipt CallbackReceipt
	err := r.db.QueryRowContext(
		ctx,
		q,
		callbackProvider,
		rec.OrderID,
		rec.TxnRef,
		rec.TransactionNo,
		rec.ResponseCode,
		rec.SignatureValid,
		[]byte(rec.Payload),
	).Scan(&receipt.ID)

	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return receipt, err
	}

	// redelivery of a callback already on file
	receipt.Duplicate = true
	err = r.db.QueryRowContext(ctx, `
		SELECT processed_at IS NOT NULL
		FROM payment_callbacks
		WHERE provider = $1 AND txn_ref = $2 AND transaction_no = $3 AND response_code = $4
	`, callbackProvider, rec.TxnRef, rec.TransactionNo, rec.ResponseCode).Scan(&receipt.Processed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return receipt, err
	}
	return receipt, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	const q = `
	UPDATE payment_callbacks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, reason)
	return err
}

func orderStatuses(ss []order.OrderStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
