package vnpay

import (
	"strconv"
	"time"
)

const (
	CommandPay    = "pay"
	CommandRefund = "refund"

	// Refund transaction types.
	RefundFull    = "02"
	RefundPartial = "03"

	// Amounts travel multiplied by 100.
	amountScale = 100
)

// PaymentParameters is the typed form of a pay request. Params is the only
// place its wire names are spelled out.
type PaymentParameters struct {
	Version    string
	Command    string
	TmnCode    string
	Amount     int64
	CurrCode   string
	TxnRef     string
	OrderInfo  string
	OrderType  string
	Locale     string
	ReturnURL  string
	IPAddr     string
	CreateDate time.Time
	ExpireDate time.Time
	BankCode   string
}

func (p PaymentParameters) Params() Params {
	return Params{
		"vnp_Version":    p.Version,
		"vnp_Command":    p.Command,
		"vnp_TmnCode":    p.TmnCode,
		"vnp_Amount":     strconv.FormatInt(p.Amount*amountScale, 10),
		"vnp_CurrCode":   p.CurrCode,
		"vnp_TxnRef":     p.TxnRef,
		"vnp_OrderInfo":  p.OrderInfo,
		"vnp_OrderType":  p.OrderType,
		"vnp_Locale":     p.Locale,
		"vnp_ReturnUrl":  p.ReturnURL,
		"vnp_IpAddr":     p.IPAddr,
		"vnp_CreateDate": FormatTime(p.CreateDate),
		"vnp_ExpireDate": FormatTime(p.ExpireDate),
		"vnp_BankCode":   p.BankCode,
	}
}

// RefundParameters is the typed form of a refund request.
type RefundParameters struct {
	RequestID       string
	Version         string
	TmnCode         string
	TransactionType string
	TxnRef          string
	Amount          int64
	OrderInfo       string
	TransactionNo   string
	TransactionDate time.Time
	CreateBy        string
	CreateDate      time.Time
	IPAddr          string
}

func (p RefundParameters) Params() Params {
	params := Params{
		"vnp_RequestId":       p.RequestID,
		"vnp_Version":         p.Version,
		"vnp_Command":         CommandRefund,
		"vnp_TmnCode":         p.TmnCode,
		"vnp_TransactionType": p.TransactionType,
		"vnp_TxnRef":          p.TxnRef,
		"vnp_Amount":          strconv.FormatInt(p.Amount*amountScale, 10),
		"vnp_OrderInfo":       p.OrderInfo,
		"vnp_TransactionNo":   p.TransactionNo,
		"vnp_CreateBy":        p.CreateBy,
		"vnp_CreateDate":      FormatTime(p.CreateDate),
		"vnp_IpAddr":          p.IPAddr,
	}
	if !p.TransactionDate.IsZero() {
		params["vnp_TransactionDate"] = FormatTime(p.TransactionDate)
	}
	return params
}

// parseAmount reverses the x100 scaling.
func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n%amountScale != 0 {
		return 0, strconv.ErrSyntax
	}
	return n / amountScale, nil
}
