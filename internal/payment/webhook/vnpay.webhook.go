package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/payment"
	"warimas-pay/internal/utils"
	"warimas-pay/internal/vnpay"

	"go.uber.org/zap"
)

// CallbackHandler applies a gateway callback.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, values url.Values) (*payment.ReconciliationOutcome, error)
}

// Handler serves the VNPay IPN and the browser return redirect.
type Handler struct {
	Engine CallbackHandler
	secret string
}

func NewWebhookHandler(engine CallbackHandler, hashSecret string) *Handler {
	return &Handler{
		Engine: engine,
		secret: hashSecret,
	}
}

// Ack is the body VNPay expects in reply to an IPN.
type Ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var (
	AckConfirmed        = Ack{RspCode: "00", Message: "Confirm Success"}
	AckOrderNotFound    = Ack{RspCode: "01", Message: "Order not found"}
	AckAlreadyConfirmed = Ack{RspCode: "02", Message: "Order already confirmed"}
	AckInvalidAmount    = Ack{RspCode: "04", Message: "Invalid amount"}
	AckInvalidSignature = Ack{RspCode: "97", Message: "Invalid signature"}
	AckUnknownError     = Ack{RspCode: "99", Message: "Unknown error"}
)

// AckFor maps a reconciliation result to the acknowledgment code.
func AckFor(out *payment.ReconciliationOutcome, err error) Ack {
	switch {
	case err == nil && out != nil && out.Duplicate:
		return AckAlreadyConfirmed
	case err == nil:
		return AckConfirmed
	case errors.Is(err, payment.ErrSignatureInvalid):
		return AckInvalidSignature
	case errors.Is(err, payment.ErrUnknownOrder):
		return AckOrderNotFound
	case errors.Is(err, payment.ErrAmountMismatch):
		return AckInvalidAmount
	default:
		return AckUnknownError
	}
}

// IPNHandler always answers 200; the outcome travels in RspCode.
func (h *Handler) IPNHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("layer", "webhook"))

	out, err := h.Engine.HandleCallback(r.Context(), r.URL.Query())
	ack := AckFor(out, err)

	if err != nil {
		log.Warn("ipn rejected", zap.String("rsp_code", ack.RspCode), zap.Error(err))
	} else {
		log.Info("ipn acknowledged", zap.String("rsp_code", ack.RspCode))
	}

	utils.WriteJSON(w, http.StatusOK, ack)
}

// ReturnResult is what the shopper's browser sees after the payment page.
type ReturnResult struct {
	OrderID       string `json:"order_id"`
	TxnRef        string `json:"txn_ref"`
	TransactionNo string `json:"transaction_no,omitempty"`
	Amount        int64  `json:"amount"`
	BankCode      string `json:"bank_code,omitempty"`
	ResponseCode  string `json:"response_code"`
	Category      string `json:"category"`
	Message       string `json:"message"`
	Success       bool   `json:"success"`
}

// ReturnHandler verifies and describes the redirect. It never changes
// state: only the IPN settles a payment.
func (h *Handler) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("layer", "webhook"))

	cb, err := vnpay.DecodeCallback(h.secret, r.URL.Query())
	if errors.Is(err, vnpay.ErrSignatureInvalid) {
		log.Warn("return redirect signature mismatch", logger.RedactParams("params", cb.RawParameters))
		utils.WriteJSONError(w, "invalid signature", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Warn("malformed return redirect", zap.Error(err))
		utils.WriteJSONError(w, "malformed payment result", http.StatusBadRequest)
		return
	}

	rc := vnpay.LookupPaymentCode(cb.ResponseCode)
	utils.WriteJSON(w, http.StatusOK, ReturnResult{
		OrderID:       cb.OrderID,
		TxnRef:        cb.TxnRef,
		TransactionNo: cb.GatewayTransactionID,
		Amount:        cb.Amount,
		BankCode:      cb.BankCode,
		ResponseCode:  cb.ResponseCode,
		Category:      rc.Category,
		Message:       rc.Message,
		Success:       cb.Succeeded(),
	})
}
