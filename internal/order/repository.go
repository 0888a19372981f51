package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warimas-pay/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)

	// UpdateStatus moves the order to `to` only if its current status is one
	// of `from`. It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []OrderStatus, to OrderStatus) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("order_id", o.ID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, customer_id, tax_rate,
			total_before_tax, total_after_tax, status
		) VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`,
		o.ID,
		o.CustomerID,
		o.TaxRate,
		o.TotalBeforeTax,
		o.TotalAfterTax,
		o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i, it := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, name, quantity, unit_price
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			it.ID, o.ID, i, it.ProductID, it.Name, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			log.Error("failed to insert order item", zap.Int("position", i), zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, tax_rate, total_before_tax, total_after_tax,
		       status, invoice_number, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&o.ID, &o.CustomerID, &o.TaxRate, &o.TotalBeforeTax, &o.TotalAfterTax,
		&o.Status, &o.InvoiceNumber, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, from []OrderStatus, to OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, to, id, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func statusStrings(ss []OrderStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
