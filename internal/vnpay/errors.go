package vnpay

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid payment request")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrSignatureInvalid    = errors.New("invalid secure hash")
	ErrMalformedCallback   = errors.New("malformed callback parameters")
	ErrGatewayUnavailable  = errors.New("vnpay gateway unavailable")
)
