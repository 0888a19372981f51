package notification

import (
	"context"
	"time"

	"warimas-pay/internal/logger"

	"github.com/zoobzio/hookz"
	"go.uber.org/zap"
)

const (
	PaymentSucceeded hookz.Key = "payment.succeeded"
	PaymentFailed    hookz.Key = "payment.failed"
	PaymentRefunded  hookz.Key = "payment.refunded"
	OrderCancelled   hookz.Key = "order.cancelled"
)

// Kinds lists every event the core emits.
var Kinds = []hookz.Key{PaymentSucceeded, PaymentFailed, PaymentRefunded, OrderCancelled}

type Event struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	ResponseCode  string    `json:"response_code,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier is told about a transition after it is durable. Implementations
// must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, kind hookz.Key, ev Event)
}

type Dispatcher struct {
	hooks *hookz.Hooks[Event]
}

func NewDispatcher(opts ...hookz.Option) *Dispatcher {
	if len(opts) == 0 {
		opts = []hookz.Option{hookz.WithWorkers(4), hookz.WithTimeout(10 * time.Second)}
	}
	return &Dispatcher{hooks: hookz.New[Event](opts...)}
}

// Subscribe registers fn for kind. Errors returned by fn are logged.
func (d *Dispatcher) Subscribe(kind hookz.Key, fn func(context.Context, Event) error) error {
	_, err := d.hooks.Hook(kind, func(ctx context.Context, ev Event) error {
		if err := fn(ctx, ev); err != nil {
			logger.L().Warn("notification hook failed",
				zap.String("event", kind),
				zap.String("order_id", ev.OrderID),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	return err
}

// Notify emits ev asynchronously. The request context's cancellation is
// dropped so hooks outlive the HTTP handler that triggered them.
func (d *Dispatcher) Notify(ctx context.Context, kind hookz.Key, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if err := d.hooks.Emit(context.WithoutCancel(ctx), kind, ev); err != nil {
		logger.FromCtx(ctx).Warn("failed to emit notification",
			zap.String("event", kind),
			zap.String("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

// Close waits for queued hooks to finish.
func (d *Dispatcher) Close() error {
	return d.hooks.Close()
}

// RegisterLogHooks logs every event. Delivery channels (email, SMS) register
// their own hooks next to it.
func RegisterLogHooks(d *Dispatcher) error {
	for _, kind := range Kinds {
		kind := kind
		err := d.Subscribe(kind, func(ctx context.Context, ev Event) error {
			logger.L().Info("notification",
				zap.String("event", kind),
				zap.String("order_id", ev.OrderID),
				zap.String("transaction_id", ev.TransactionID),
				zap.Int64("amount", ev.Amount),
				zap.String("reason", ev.Reason),
			)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, hookz.Key, Event) {}
