package payment

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"warimas-pay/internal/config"
	"warimas-pay/internal/notification"
	"warimas-pay/internal/order"
	"warimas-pay/internal/vnpay"

	"github.com/stretchr/testify/require"
)

const testSecret = "SECRETKEY0123456789"

// 10:00 in Ho Chi Minh City.
var fixedNow = time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		Version:     "2.1.0",
		TmnCode:     "TMN00001",
		HashSecret:  testSecret,
		PayURL:      "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		RefundURL:   "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction",
		ReturnURL:   "https://shop.example/payment/vnpay/return",
		Locale:      "vn",
		CurrCode:    "VND",
		OrderType:   "other",
		PaymentTTL:  15 * time.Minute,
		HTTPTimeout: 2 * time.Second,
	}
}

// memRepo keeps transactions and order statuses in memory with the same
// conditional-write semantics as the postgres repository.
type memRepo struct {
	mu        sync.Mutex
	txns      []*Transaction
	orders    map[string]order.OrderStatus
	invoices  map[string]string
	refunds   []*Refund
	callbacks map[string]int64
	processed map[int64]bool
	failed    map[int64]string
	nextID    int64

	completeApplied int
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:    make(map[string]order.OrderStatus),
		invoices:  make(map[string]string),
		callbacks: make(map[string]int64),
		processed: make(map[int64]bool),
		failed:    make(map[int64]string),
	}
}

func (m *memRepo) addOrder(id string, status order.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id] = status
}

func (m *memRepo) orderStatus(id string) order.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memRepo) addTxn(t *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txns = append(m.txns, &cp)
}

func (m *memRepo) txn(id string) Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.ID == id {
			return *t
		}
	}
	return Transaction{}
}

func (m *memRepo) CreateTransaction(ctx context.Context, t *Transaction) error {
	m.addTxn(t)
	return nil
}

func (m *memRepo) LatestByOrder(ctx context.Context, orderID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Transaction
	for _, t := range m.txns {
		if t.OrderID == orderID && (latest == nil || t.Attempt >= latest.Attempt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, ErrTransactionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memRepo) ByTxnRef(ctx context.Context, txnRef string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.TxnRef == txnRef {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memRepo) SettledByOrder(ctx context.Context, orderID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.OrderID == orderID && (t.Status == StatusSuccess || t.Status == StatusRefunded) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *memRepo) CompleteTransaction(ctx context.Context, c Completion) (TransitionResult, error) {
	if err := checkTransition(StatusPending, c.Status); err != nil {
		return TransitionResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var res TransitionResult
	for _, t := range m.txns {
		if t.ID != c.TransactionID || t.Status != StatusPending {
			continue
		}
		t.Status = c.Status
		t.GatewayTransactionID = c.GatewayTransactionID
		t.ResponseCode = c.ResponseCode
		t.PaidAt = c.PaidAt
		completed := c.CompletedAt
		t.CompletedAt = &completed
		if c.BankCode != "" {
			t.BankCode = c.BankCode
		}
		res.Applied = true
		m.completeApplied++

		if c.Status == StatusSuccess {
			if next, err := order.Next(m.orders[c.OrderID], order.ActionConfirm); err == nil {
				m.orders[c.OrderID] = next
				m.invoices[c.OrderID] = c.InvoiceNumber
				res.OrderUpdated = true
			}
		}
	}
	return res, nil
}

func (m *memRepo) RefundTransaction(ctx context.Context, r *Refund) (TransitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res TransitionResult
	for _, t := range m.txns {
		if t.ID != r.TransactionID || t.Status != StatusSuccess {
			continue
		}
		t.Status = StatusRefunded
		r.CreatedAt = fixedNow
		m.refunds = append(m.refunds, r)
		res.Applied = true

		if next, err := order.Next(m.orders[r.OrderID], order.ActionCancel); err == nil {
			m.orders[r.OrderID] = next
			res.OrderUpdated = true
		}
	}
	return res, nil
}

func (m *memRepo) SaveCallback(ctx context.Context, rec CallbackRecord) (CallbackReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.TxnRef + "|" + rec.TransactionNo + "|" + rec.ResponseCode
	if id, ok := m.callbacks[key]; ok {
		return CallbackReceipt{Duplicate: true, Processed: m.processed[id]}, nil
	}
	m.nextID++
	m.callbacks[key] = m.nextID
	return CallbackReceipt{ID: m.nextID}, nil
}

func (m *memRepo) MarkCallbackProcessed(ctx context.Context, callbackID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[callbackID] = true
	return nil
}

func (m *memRepo) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[callbackID] = reason
	return nil
}

// fakeRefundGateway records every outbound refund call.
type fakeRefundGateway struct {
	mu     sync.Mutex
	calls  []vnpay.RefundRequest
	result *vnpay.RefundResult
	err    error
}

func (g *fakeRefundGateway) Refund(ctx context.Context, req vnpay.RefundRequest) (*vnpay.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		res := *g.result
		return &res, nil
	}
	txnType := vnpay.RefundPartial
	if req.Full {
		txnType = vnpay.RefundFull
	}
	return &vnpay.RefundResult{
		RequestID:            "req-1",
		TransactionType:      txnType,
		ResponseCode:         vnpay.SuccessCode,
		GatewayTransactionID: "99990001",
	}, nil
}

func (g *fakeRefundGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recordingNotifier collects events synchronously.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	kind string
	ev   notification.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, kind string, ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{kind: kind, ev: ev})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

func pendingTxn(orderID string, amount int64) *Transaction {
	return attemptTxn(orderID, 1, amount)
}

// attemptTxn is the PENDING transaction of one checkout attempt. The first
// attempt keeps the plain "txn-<order>" id.
func attemptTxn(orderID string, attempt int, amount int64) *Transaction {
	id := "txn-" + orderID
	if attempt > 1 {
		id += "-" + strconv.Itoa(attempt)
	}
	return &Transaction{
		ID:        id,
		OrderID:   orderID,
		TxnRef:    vnpay.TxnRef(orderID, attempt),
		Attempt:   attempt,
		Amount:    amount,
		Currency:  "VND",
		Status:    StatusPending,
		CreatedAt: fixedNow,
		ExpiresAt: fixedNow.Add(15 * time.Minute),
	}
}

func callbackParams(orderID string, amount int64, code, txnNo string, payDate time.Time) vnpay.Params {
	return attemptParams(orderID, 1, amount, code, txnNo, payDate)
}

func attemptParams(orderID string, attempt int, amount int64, code, txnNo string, payDate time.Time) vnpay.Params {
	return vnpay.Params{
		"vnp_TmnCode":           "TMN00001",
		"vnp_TxnRef":            vnpay.TxnRef(orderID, attempt),
		"vnp_Amount":            strconv.FormatInt(amount*100, 10),
		"vnp_ResponseCode":      code,
		"vnp_TransactionStatus": code,
		"vnp_TransactionNo":     txnNo,
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           vnpay.FormatTime(payDate),
		"vnp_OrderInfo":         "Thanh toan don hang " + orderID,
	}
}

func signedValues(t *testing.T, p vnpay.Params) url.Values {
	t.Helper()
	env := p.Sign(testSecret)
	v := url.Values{}
	for k, val := range env.WireParams() {
		v.Set(k, val)
	}
	require.NotEmpty(t, v.Get(vnpay.FieldSecureHash))
	return v
}
