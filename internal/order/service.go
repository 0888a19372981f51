package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"
	"warimas-pay/internal/notification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, customerID string, items []ItemInput) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	Confirm(ctx context.Context, id string) (*Order, error)
	Ship(ctx context.Context, id string) (*Order, error)
	Deliver(ctx context.Context, id string) (*Order, error)
	Cancel(ctx context.Context, id, reason string) (*Order, error)
}

type service struct {
	repo     Repository
	taxRate  decimal.Decimal
	notifier notification.Notifier
}

func NewService(repo Repository, taxRate decimal.Decimal, notifier notification.Notifier) Service {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &service{
		repo:     repo,
		taxRate:  taxRate,
		notifier: notifier,
	}
}

func (s *service) Create(ctx context.Context, customerID string, items []ItemInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.Int("item_count", len(items)),
	)

	if strings.TrimSpace(customerID) == "" {
		return nil, ErrUnauthorized
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		TaxRate:    s.taxRate,
		Status:     StatusPending,
	}
	for _, in := range items {
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: in.ProductID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}

	if err := o.Recalculate(); err != nil {
		log.Warn("invalid order", zap.Error(err))
		return nil, err
	}

	log = log.With(zap.String("order_id", o.ID))
	log.Info("price calculated",
		zap.Int64("total_before_tax", o.TotalBeforeTax),
		zap.Int64("total_after_tax", o.TotalAfterTax),
		zap.String("tax_rate", o.TaxRate.String()),
	)

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	log.Info("order created")
	return o, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Confirm(ctx context.Context, id string) (*Order, error) {
	return s.apply(ctx, id, ActionConfirm, "")
}

func (s *service) Ship(ctx context.Context, id string) (*Order, error) {
	return s.apply(ctx, id, ActionShip, "")
}

func (s *service) Deliver(ctx context.Context, id string) (*Order, error) {
	return s.apply(ctx, id, ActionDeliver, "")
}

func (s *service) Cancel(ctx context.Context, id, reason string) (*Order, error) {
	return s.apply(ctx, id, ActionCancel, reason)
}

// apply validates the transition against the stored status and writes it
// with a conditional update, so a concurrent writer makes this call fail
// instead of overwriting.
func (s *service) apply(ctx context.Context, id string, action Action, reason string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("order_id", id),
		zap.String("action", string(action)),
	)

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := Next(o.Status, action)
	if err != nil {
		log.Warn("rejected order transition", zap.String("status", string(o.Status)))
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, id, []OrderStatus{o.Status}, next)
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return nil, err
	}
	if !ok {
		log.Warn("order status changed concurrently", zap.String("expected", string(o.Status)))
		return nil, fmt.Errorf("%w: order %s is no longer %s", ErrInvalidTransition, id, o.Status)
	}

	o.Status = next
	metrics.OrderTransitionsTotal.WithLabelValues(string(next)).Inc()
	log.Info("order status updated", zap.String("status", string(next)))

	if next == StatusCancelled {
		s.notifier.Notify(ctx, notification.OrderCancelled, notification.Event{
			OrderID: o.ID,
			Amount:  o.TotalAfterTax,
			Reason:  reason,
		})
	}

	return o, nil
}

// IsNotFound reports whether err means the order does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
