package vnpay

import (
	"net/url"
	"sort"
	"strings"
)

const (
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

// Params is the flat key/value bag exchanged with the gateway.
type Params map[string]string

// ParamsFromValues keeps the first value of every key.
func ParamsFromValues(v url.Values) Params {
	p := make(Params, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			p[k] = vals[0]
		}
	}
	return p
}

// Keys returns the non-empty keys in byte-wise ascending order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode serializes the sorted, non-empty entries as key=value pairs joined
// by '&', both sides escaped with url.QueryEscape. The output is the hash
// basis and the transmitted query string at the same time.
func (p Params) Encode() string {
	var b strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[k]))
	}
	return b.String()
}

// HashData is the string the secure hash is computed over.
func (p Params) HashData() string {
	return p.Encode()
}

// WithoutSignature returns a copy stripped of the hash fields.
func (p Params) WithoutSignature() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if k == FieldSecureHash || k == FieldSecureHashType {
			continue
		}
		out[k] = v
	}
	return out
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
