package vnpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"warimas-pay/internal/config"
	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// RefundRequest is what the refund orchestrator asks the gateway for.
type RefundRequest struct {
	OrderID              string
	// TxnRef of the settled attempt; the order id when empty.
	TxnRef               string
	GatewayTransactionID string
	TransactionDate      time.Time
	Amount               int64
	Full                 bool
	Reason               string
	CreatedBy            string
	ClientIP             string
}

// RefundResult is the verified synchronous answer of the refund API.
type RefundResult struct {
	RequestID            string
	TransactionType      string
	ResponseCode         string
	Message              string
	GatewayTransactionID string
	BankCode             string
	Raw                  Params
}

func (r *RefundResult) Succeeded() bool {
	return r.ResponseCode == SuccessCode
}

// RefundGateway is the outbound refund call; RefundClient is the HTTP one.
type RefundGateway interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type RefundClient struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	clock      clockz.Clock
}

func NewRefundClient(cfg config.GatewayConfig, clock clockz.Clock) *RefundClient {
	if cfg.HashSecret == "" {
		logger.L().Warn("VNPay hash secret is empty")
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RefundClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
	}
}

func (c *RefundClient) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", req.OrderID),
		zap.String("transaction_no", req.GatewayTransactionID),
		zap.Int64("amount", req.Amount),
		zap.Bool("full", req.Full),
	)

	txnType := RefundPartial
	if req.Full {
		txnType = RefundFull
	}
	txnRef := req.TxnRef
	if txnRef == "" {
		txnRef = req.OrderID
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}

	params := RefundParameters{
		RequestID:       uuid.New().String(),
		Version:         c.cfg.Version,
		TmnCode:         c.cfg.TmnCode,
		TransactionType: txnType,
		TxnRef:          txnRef,
		Amount:          req.Amount,
		OrderInfo:       req.Reason,
		TransactionNo:   req.GatewayTransactionID,
		TransactionDate: req.TransactionDate,
		CreateBy:        createdBy,
		CreateDate:      c.clock.Now(),
		IPAddr:          req.ClientIP,
	}
	envelope := params.Params().Sign(c.cfg.HashSecret)

	body, err := json.Marshal(envelope.WireParams())
	if err != nil {
		log.Error("failed to marshal refund request", zap.Error(err))
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RefundURL, bytes.NewReader(body))
	if err != nil {
		log.Error("failed creating refund request", zap.Error(err))
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Info("sending refund request to VNPay", zap.String("request_id", params.RequestID))

	timer := metrics.StartTimer()
	resp, err := c.httpClient.Do(httpReq)
	timer.ObserveGateway("refund")
	if err != nil {
		log.Error("VNPay refund request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read refund response body", zap.Error(err))
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("VNPay returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return nil, fmt.Errorf("%w: http status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	respParams, err := decodeJSONParams(respBody)
	if err != nil {
		log.Error("failed decoding refund response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	claimed := respParams[FieldSecureHash]
	signed := respParams.WithoutSignature()
	if claimed == "" || !Verify(c.cfg.HashSecret, signed.HashData(), claimed) {
		log.Warn("refund response failed signature verification")
		return nil, ErrSignatureInvalid
	}

	result := &RefundResult{
		RequestID:            params.RequestID,
		TransactionType:      txnType,
		ResponseCode:         signed["vnp_ResponseCode"],
		Message:              signed["vnp_Message"],
		GatewayTransactionID: signed["vnp_TransactionNo"],
		BankCode:             signed["vnp_BankCode"],
		Raw:                  signed,
	}
	if result.Message == "" {
		result.Message = LookupRefundCode(result.ResponseCode).Message
	}

	log.Info("VNPay refund answered",
		zap.String("response_code", result.ResponseCode),
		zap.String("message", result.Message),
	)
	return result, nil
}

// decodeJSONParams flattens a JSON object of scalars into Params.
func decodeJSONParams(data []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	out := make(Params, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
