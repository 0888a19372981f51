package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Sign returns the hex encoded HMAC-SHA512 of data.
func Sign(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC and compares it in constant time. The claimed
// signature is accepted in either hex case.
func Verify(secret, data, claimed string) bool {
	got, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hmac.Equal(mac.Sum(nil), got)
}

// SignedEnvelope is a parameter set together with its secure hash. It can
// only be produced by Params.Sign.
type SignedEnvelope struct {
	params    Params
	signature string
}

// Sign canonicalizes p and signs it.
func (p Params) Sign(secret string) SignedEnvelope {
	clean := p.WithoutSignature()
	return SignedEnvelope{
		params:    clean,
		signature: Sign(secret, clean.HashData()),
	}
}

// Params returns a copy of the signed parameters.
func (e SignedEnvelope) Params() Params {
	return e.params.clone()
}

func (e SignedEnvelope) Signature() string {
	return e.signature
}

// Query is the canonical query string with vnp_SecureHash appended last.
func (e SignedEnvelope) Query() string {
	return e.params.Encode() + "&" + FieldSecureHash + "=" + e.signature
}

// WireParams returns the signed parameters plus vnp_SecureHash, for JSON bodies.
func (e SignedEnvelope) WireParams() Params {
	out := e.params.clone()
	out[FieldSecureHash] = e.signature
	return out
}
