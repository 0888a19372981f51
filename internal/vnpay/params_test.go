package vnpay

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Encode(t *testing.T) {
	t.Run("Sorted and escaped", func(t *testing.T) {
		p := Params{
			"vnp_TxnRef":    "ord-1",
			"vnp_Amount":    "10000000",
			"vnp_OrderInfo": "Thanh toan don hang ord-1",
			"vnp_ReturnUrl": "https://shop.example/return?x=1",
		}

		got := p.Encode()

		assert.Equal(t,
			"vnp_Amount=10000000&vnp_OrderInfo=Thanh+toan+don+hang+ord-1&vnp_ReturnUrl=https%3A%2F%2Fshop.example%2Freturn%3Fx%3D1&vnp_TxnRef=ord-1",
			got,
		)
	})

	t.Run("Drops empty values", func(t *testing.T) {
		p := Params{"vnp_BankCode": "", "vnp_Locale": "vn"}
		assert.Equal(t, "vnp_Locale=vn", p.Encode())
	})

	t.Run("Byte-wise ordering", func(t *testing.T) {
		p := Params{"b": "1", "B": "2", "a": "3", "_": "4"}
		assert.Equal(t, []string{"B", "_", "a", "b"}, p.Keys())
	})

	t.Run("Hash basis equals query string", func(t *testing.T) {
		p := Params{"vnp_OrderInfo": "a b&c", "vnp_TxnRef": "x"}
		assert.Equal(t, p.Encode(), p.HashData())
	})
}

func TestParams_DeterministicAcrossInsertionOrder(t *testing.T) {
	keys := []string{"vnp_Version", "vnp_Command", "vnp_TmnCode", "vnp_Amount", "vnp_TxnRef", "vnp_Locale"}
	values := []string{"2.1.0", "pay", "TMN", "500000", "ord 9", "vn"}

	forward := Params{}
	for i := range keys {
		forward[keys[i]] = values[i]
	}
	backward := Params{}
	for i := len(keys) - 1; i >= 0; i-- {
		backward[keys[i]] = values[i]
	}

	for i := 0; i < 20; i++ {
		assert.Equal(t, forward.Encode(), backward.Encode())
	}
}

func TestParamsFromValues(t *testing.T) {
	v := url.Values{}
	v.Add("vnp_TxnRef", "first")
	v.Add("vnp_TxnRef", "second")
	v.Set("vnp_Amount", "100")

	p := ParamsFromValues(v)

	assert.Equal(t, "first", p["vnp_TxnRef"])
	assert.Equal(t, "100", p["vnp_Amount"])
}

func TestParams_WithoutSignature(t *testing.T) {
	p := Params{
		"vnp_TxnRef":         "ord-1",
		FieldSecureHash:      "abc",
		FieldSecureHashType: "HmacSHA512",
	}

	out := p.WithoutSignature()

	assert.Equal(t, Params{"vnp_TxnRef": "ord-1"}, out)
	assert.Contains(t, p, FieldSecureHash, "original must not be mutated")
}
