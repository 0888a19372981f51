package vnpay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

// MockRoundTripperWithError lets a test fail the transport itself.
type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func refundServer(t *testing.T, handle func(t *testing.T, got Params) (int, map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var got Params
		require.NoError(t, json.Unmarshal(body, &got))

		status, resp := handle(t, got)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func signedResponse(fields Params) map[string]any {
	env := fields.Sign(testSecret)
	out := map[string]any{}
	for k, v := range env.WireParams() {
		out[k] = v
	}
	return out
}

func newTestRefundClient(url string) *RefundClient {
	cfg := testGatewayConfig()
	cfg.RefundURL = url
	cfg.HTTPTimeout = 2 * time.Second
	return NewRefundClient(cfg, clockz.NewFakeClockAt(fixedNow))
}

func baseRefundRequest() RefundRequest {
	return RefundRequest{
		OrderID:              "ord-123",
		TxnRef:               "ord-123_1",
		GatewayTransactionID: "14226112",
		TransactionDate:      fixedNow,
		Amount:               110000,
		Full:                 true,
		Reason:               "customer cancelled",
		CreatedBy:            "admin@shop",
		ClientIP:             "10.0.0.1",
	}
}

func TestRefundClient_Refund(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			claimed := got[FieldSecureHash]
			assert.True(t, Verify(testSecret, got.WithoutSignature().HashData(), claimed), "request must be signed")

			assert.Equal(t, "refund", got["vnp_Command"])
			assert.Equal(t, RefundFull, got["vnp_TransactionType"])
			assert.Equal(t, "ord-123_1", got["vnp_TxnRef"])
			assert.Equal(t, "11000000", got["vnp_Amount"])
			assert.Equal(t, "14226112", got["vnp_TransactionNo"])
			assert.Equal(t, "20240301100000", got["vnp_TransactionDate"])
			assert.Equal(t, "20240301100000", got["vnp_CreateDate"])
			assert.Equal(t, "admin@shop", got["vnp_CreateBy"])
			assert.NotEmpty(t, got["vnp_RequestId"])

			return http.StatusOK, signedResponse(Params{
				"vnp_ResponseId":    "resp-1",
				"vnp_Command":       "refund",
				"vnp_ResponseCode":  "00",
				"vnp_Message":       "Refund success",
				"vnp_TxnRef":        "ord-123",
				"vnp_TransactionNo": "14226199",
				"vnp_BankCode":      "NCB",
			})
		})
		defer srv.Close()

		res, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		require.NoError(t, err)

		assert.True(t, res.Succeeded())
		assert.Equal(t, "14226199", res.GatewayTransactionID)
		assert.Equal(t, RefundFull, res.TransactionType)
		assert.Equal(t, "Refund success", res.Message)
		assert.NotEmpty(t, res.RequestID)
	})

	t.Run("Partial refund type", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			assert.Equal(t, RefundPartial, got["vnp_TransactionType"])
			return http.StatusOK, signedResponse(Params{"vnp_ResponseCode": "00"})
		})
		defer srv.Close()

		req := baseRefundRequest()
		req.Full = false
		req.Amount = 10000

		res, err := newTestRefundClient(srv.URL).Refund(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, RefundPartial, res.TransactionType)
	})

	t.Run("Order id stands in for a missing reference", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			assert.Equal(t, "ord-123", got["vnp_TxnRef"])
			return http.StatusOK, signedResponse(Params{"vnp_ResponseCode": "00"})
		})
		defer srv.Close()

		req := baseRefundRequest()
		req.TxnRef = ""

		_, err := newTestRefundClient(srv.URL).Refund(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("Declined keeps gateway message", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			return http.StatusOK, signedResponse(Params{"vnp_ResponseCode": "95"})
		})
		defer srv.Close()

		res, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		assert.Equal(t, LookupRefundCode("95").Message, res.Message)
	})

	t.Run("Numeric fields are accepted", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			resp := signedResponse(Params{"vnp_ResponseCode": "00", "vnp_Amount": "11000000"})
			resp["vnp_Amount"] = json.Number("11000000")
			return http.StatusOK, resp
		})
		defer srv.Close()

		_, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		assert.NoError(t, err)
	})

	t.Run("Forged response", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			resp := signedResponse(Params{"vnp_ResponseCode": "95"})
			resp["vnp_ResponseCode"] = "00"
			return http.StatusOK, resp
		})
		defer srv.Close()

		res, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrSignatureInvalid))
	})

	t.Run("Server error", func(t *testing.T) {
		srv := refundServer(t, func(t *testing.T, got Params) (int, map[string]any) {
			return http.StatusBadGateway, map[string]any{}
		})
		defer srv.Close()

		_, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	})

	t.Run("Transport error", func(t *testing.T) {
		c := newTestRefundClient("https://refund.invalid")
		c.httpClient.Transport = MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset")
		})

		_, err := c.Refund(context.Background(), baseRefundRequest())
		assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	})

	t.Run("Malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}))
		defer srv.Close()

		_, err := newTestRefundClient(srv.URL).Refund(context.Background(), baseRefundRequest())
		assert.True(t, errors.Is(err, ErrMalformedCallback))
	})
}
