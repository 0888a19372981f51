package api

import (
	"time"

	"warimas-pay/internal/order"
	"warimas-pay/internal/payment"
	"warimas-pay/internal/utils"
	"warimas-pay/internal/vnpay"
)

// Response is the envelope every order endpoint answers with.
type Response struct {
	Success  bool              `json:"success"`
	Message  *string           `json:"message,omitempty"`
	Order    *OrderResponse    `json:"order,omitempty"`
	Checkout *CheckoutResponse `json:"checkout,omitempty"`
	Refund   *RefundResponse   `json:"refund,omitempty"`
}

type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderResponse struct {
	ID             string              `json:"id"`
	CustomerID     string              `json:"customer_id"`
	Status         string              `json:"status"`
	TaxRate        string              `json:"tax_rate"`
	TotalBeforeTax int64               `json:"total_before_tax"`
	TotalAfterTax  int64               `json:"total_after_tax"`
	InvoiceNumber  string              `json:"invoice_number,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

type TransactionResponse struct {
	ID        string `json:"id"`
	TxnRef    string `json:"txn_ref"`
	Attempt   int    `json:"attempt"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	BankCode  string `json:"bank_code,omitempty"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

type CheckoutResponse struct {
	RedirectURL  string              `json:"redirect_url"`
	Transaction  TransactionResponse `json:"transaction"`
	Instructions []string            `json:"instructions"`
}

type RefundResponse struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	Amount          int64  `json:"amount"`
	TransactionType string `json:"transaction_type"`
	ResponseCode    string `json:"response_code"`
	Reason          string `json:"reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toOrderResponse(o *order.Order) *OrderResponse {
	if o == nil {
		return nil
	}

	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
		})
	}

	return &OrderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		Status:         string(o.Status),
		TaxRate:        o.TaxRate.String(),
		TotalBeforeTax: o.TotalBeforeTax,
		TotalAfterTax:  o.TotalAfterTax,
		InvoiceNumber:  utils.PtrString(o.InvoiceNumber),
		Items:          items,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
	}
}

const displayTimeLayout = "15:04 02/01/2006"

func toCheckoutResponse(redirect string, txn *payment.Transaction) *CheckoutResponse {
	expires := txn.ExpiresAt.In(vnpay.Location())

	steps := payment.InjectVariables(
		payment.GetInstructions(txn.BankCode),
		payment.InstructionVars{
			"amount":     payment.FormatVND(txn.Amount),
			"expires_at": expires.Format(displayTimeLayout),
		},
	)

	return &CheckoutResponse{
		RedirectURL: redirect,
		Transaction: TransactionResponse{
			ID:        txn.ID,
			TxnRef:    txn.TxnRef,
			Attempt:   txn.Attempt,
			Amount:    txn.Amount,
			Currency:  txn.Currency,
			BankCode:  txn.BankCode,
			Status:    string(txn.Status),
			ExpiresAt: expires.Format(time.RFC3339),
		},
		Instructions: steps,
	}
}

func toRefundResponse(rf *payment.Refund) *RefundResponse {
	if rf == nil {
		return nil
	}
	return &RefundResponse{
		ID:              rf.ID,
		OrderID:         rf.OrderID,
		Amount:          rf.Amount,
		TransactionType: rf.TransactionType,
		ResponseCode:    rf.ResponseCode,
		Reason:          rf.Reason,
		CreatedAt:       rf.CreatedAt.Format(time.RFC3339),
	}
}
