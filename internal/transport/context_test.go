package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHelpers(t *testing.T) {
	t.Run("Success_InjectAndRetrieve", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		w := httptest.NewRecorder()

		ctx := WithHTTP(context.Background(), req, w)

		assert.Equal(t, req, GetRequest(ctx))
		assert.Equal(t, w, GetResponseWriter(ctx))
	})

	t.Run("Empty_Context_ReturnsNil", func(t *testing.T) {
		ctx := context.Background()

		assert.Nil(t, GetRequest(ctx))
		assert.Nil(t, GetResponseWriter(ctx))
	})
}

func TestClientIP(t *testing.T) {
	t.Run("From request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")

		ctx := WithHTTP(context.Background(), req, httptest.NewRecorder())
		assert.Equal(t, "203.0.113.9", ClientIP(ctx))
	})

	t.Run("No request", func(t *testing.T) {
		assert.Equal(t, DefaultClientIP, ClientIP(context.Background()))
	})
}

func TestMiddleware(t *testing.T) {
	var got *http.Request
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequest(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if assert.NotNil(t, got) {
		assert.Equal(t, "/orders", got.URL.Path)
	}
}
