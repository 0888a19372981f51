package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PaymentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vnpay_payment_requests_total",
			Help: "Payment redirect URLs built, by result",
		},
		[]string{"result"},
	)

	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vnpay_callbacks_total",
			Help: "Gateway IPN callbacks handled, by result",
		},
		[]string{"result"},
	)

	RefundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vnpay_refunds_total",
			Help: "Refund attempts, by result",
		},
		[]string{"result"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vnpay_gateway_request_duration_seconds",
			Help:    "Latency of outbound calls to the gateway",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions applied, by target status",
		},
		[]string{"to"},
	)
)

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		PaymentRequestsTotal,
		CallbacksTotal,
		RefundsTotal,
		GatewayRequestDuration,
		OrderTransitionsTotal,
	)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveGateway records the time since t for operation.
func (t *Timer) ObserveGateway(operation string) {
	GatewayRequestDuration.WithLabelValues(operation).Observe(t.Duration().Seconds())
}
