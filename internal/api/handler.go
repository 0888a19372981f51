package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/order"
	"warimas-pay/internal/payment"
	"warimas-pay/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CheckoutStarter interface {
	Start(ctx context.Context, orderID, clientIP, bankCode string) (string, *payment.Transaction, error)
}

type RefundIssuer interface {
	Refund(ctx context.Context, orderID string, amount int64, reason string) (*payment.RefundOutcome, error)
	RefundFull(ctx context.Context, orderID, reason string) (*payment.RefundOutcome, error)
}

// Handler serves the order and payment surface over HTTP.
type Handler struct {
	Orders   order.Service
	Checkout CheckoutStarter
	Refunds  RefundIssuer
}

func NewHandler(orders order.Service, checkout CheckoutStarter, refunds RefundIssuer) *Handler {
	return &Handler{
		Orders:   orders,
		Checkout: checkout,
		Refunds:  refunds,
	}
}

type createOrderRequest struct {
	Items []order.ItemInput `json:"items"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.Orders.Create(ctx, userID, req.Items)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: utils.StrPtr("Order created successfully"),
		Order:   toOrderResponse(o),
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}

	utils.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Order:   toOrderResponse(o),
	})
}

type checkoutRequest struct {
	BankCode string `json:"bank_code"`
}

func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	req.BankCode = strings.ToUpper(strings.TrimSpace(req.BankCode))

	redirect, txn, err := h.Checkout.Start(ctx, o.ID, utils.ClientIP(r), req.BankCode)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, Response{
		Success:  true,
		Message:  utils.StrPtr("Redirect the customer to the payment page"),
		Checkout: toCheckoutResponse(redirect, txn),
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder refunds a paid order in full, which also cancels it. Orders
// without a settled payment are cancelled directly.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("layer", "api"), zap.String("method", "CancelOrder"))

	o, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	// shipped and delivered orders go through an admin refund instead
	if !order.CanCancel(o.Status) {
		writeError(ctx, w, fmt.Errorf("%w: cannot cancel order in status %s", order.ErrInvalidTransition, o.Status))
		return
	}

	resp := Response{Success: true}

	out, err := h.Refunds.RefundFull(ctx, o.ID, req.Reason)
	switch {
	case err == nil:
		resp.Refund = toRefundResponse(out.Refund)
		if !out.OrderCancelled {
			log.Warn("refund issued but order could not be cancelled",
				zap.String("order_id", o.ID),
				zap.String("status", string(o.Status)),
			)
		}
		if o, err = h.Orders.Get(ctx, o.ID); err != nil {
			writeError(ctx, w, err)
			return
		}
	case errors.Is(err, payment.ErrNotRefundable), errors.Is(err, payment.ErrAlreadyRefunded):
		if o, err = h.Orders.Cancel(ctx, o.ID, req.Reason); err != nil {
			writeError(ctx, w, err)
			return
		}
	default:
		writeError(ctx, w, err)
		return
	}

	resp.Message = utils.StrPtr("Order cancelled")
	resp.Order = toOrderResponse(o)
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Orders.Ship)
}

func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Orders.Deliver)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*order.Order, error)) {
	ctx := r.Context()

	o, err := fn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: utils.StrPtr("Order updated to " + string(o.Status)),
		Order:   toOrderResponse(o),
	})
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refundRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := h.Refunds.Refund(ctx, chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: utils.StrPtr("Refund accepted"),
		Refund:  toRefundResponse(out.Refund),
	})
}

// ownedOrder loads the order in the URL and checks the caller may see it.
// Admins see every order; customers only their own.
func (h *Handler) ownedOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	ctx := r.Context()

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok && !utils.IsInternalRequest(ctx) {
		utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return nil, false
	}

	if !utils.IsAdmin(ctx) && o.CustomerID != userID {
		// same answer as a missing order
		writeError(ctx, w, order.ErrOrderNotFound)
		return nil, false
	}
	return o, true
}

const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
