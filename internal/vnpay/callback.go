package vnpay

import (
	"fmt"
	"net/url"
	"time"
)

const (
	SuccessCode = "00"
)

// CallbackOutcome is the decoded result of an IPN or return redirect.
// An outcome with SignatureValid == false must never be applied.
type CallbackOutcome struct {
	TxnRef               string
	OrderID              string
	Attempt              int
	GatewayTransactionID string
	ResponseCode         string
	TransactionStatus    string
	BankCode             string
	Amount               int64
	PayDate              time.Time
	RawParameters        Params
	SignatureValid       bool
}

// Succeeded reports whether the gateway declared the payment successful.
// vnp_TransactionStatus is checked only when the gateway sent it.
func (o *CallbackOutcome) Succeeded() bool {
	if o.ResponseCode != SuccessCode {
		return false
	}
	return o.TransactionStatus == "" || o.TransactionStatus == SuccessCode
}

// DecodeCallback verifies and decodes the parameters the gateway sent back.
// On a signature mismatch the partially filled outcome is returned together
// with ErrSignatureInvalid so the caller can audit it.
func DecodeCallback(secret string, values url.Values) (*CallbackOutcome, error) {
	params := ParamsFromValues(values)
	claimed := params[FieldSecureHash]
	raw := params.WithoutSignature()

	out := &CallbackOutcome{
		TxnRef:               raw["vnp_TxnRef"],
		GatewayTransactionID: raw["vnp_TransactionNo"],
		ResponseCode:         raw["vnp_ResponseCode"],
		TransactionStatus:    raw["vnp_TransactionStatus"],
		BankCode:             raw["vnp_BankCode"],
		RawParameters:        raw,
	}
	out.OrderID, out.Attempt = SplitTxnRef(out.TxnRef)

	if claimed == "" || !Verify(secret, raw.HashData(), claimed) {
		return out, ErrSignatureInvalid
	}
	out.SignatureValid = true

	if out.TxnRef == "" {
		return out, fmt.Errorf("%w: missing vnp_TxnRef", ErrMalformedCallback)
	}

	amount, err := parseAmount(raw["vnp_Amount"])
	if err != nil {
		return out, fmt.Errorf("%w: vnp_Amount %q", ErrMalformedCallback, raw["vnp_Amount"])
	}
	out.Amount = amount

	if s := raw["vnp_PayDate"]; s != "" {
		payDate, err := ParseTime(s)
		if err != nil {
			return out, fmt.Errorf("%w: vnp_PayDate %q", ErrMalformedCallback, s)
		}
		out.PayDate = payDate
	}

	return out, nil
}
