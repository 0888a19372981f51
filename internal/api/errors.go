package api

import (
	"context"
	"errors"
	"net/http"

	"warimas-pay/internal/logger"
	"warimas-pay/internal/order"
	"warimas-pay/internal/payment"
	"warimas-pay/internal/utils"

	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{order.ErrOrderNotFound, http.StatusNotFound},
	{payment.ErrUnknownOrder, http.StatusNotFound},
	{order.ErrUnauthorized, http.StatusUnauthorized},
	{order.ErrEmptyOrder, http.StatusBadRequest},
	{order.ErrInvalidItem, http.StatusBadRequest},
	{order.ErrInvalidTaxRate, http.StatusBadRequest},
	{payment.ErrInvalidRequest, http.StatusBadRequest},
	{payment.ErrAmountExceedsOriginal, http.StatusBadRequest},
	{order.ErrInvalidTransition, http.StatusConflict},
	{payment.ErrOrderNotPayable, http.StatusConflict},
	{payment.ErrAlreadyPaid, http.StatusConflict},
	{payment.ErrPaymentInProgress, http.StatusConflict},
	{payment.ErrNotRefundable, http.StatusConflict},
	{payment.ErrAlreadyRefunded, http.StatusConflict},
	{payment.ErrRefundDeclined, http.StatusUnprocessableEntity},
	{payment.ErrGatewayUnavailable, http.StatusBadGateway},
}

// statusFor maps a domain error to its HTTP status. Anything unknown is an
// internal error and its text is not shown to the caller.
func statusFor(err error) (int, bool) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, known := statusFor(err)
	if !known {
		logger.FromCtx(ctx).Error("request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", status)
		return
	}
	utils.WriteJSONError(w, err.Error(), status)
}
