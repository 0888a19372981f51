package transport

import (
	"context"
	"net/http"

	"warimas-pay/internal/utils"
)

type ctxKey string

const (
	requestKey        ctxKey = "httpRequest"
	responseWriterKey ctxKey = "httpResponseWriter"
)

// DefaultClientIP is reported to the gateway when a call has no inbound request.
const DefaultClientIP = "127.0.0.1"

func WithHTTP(ctx context.Context, r *http.Request, w http.ResponseWriter) context.Context {
	ctx = context.WithValue(ctx, requestKey, r)
	ctx = context.WithValue(ctx, responseWriterKey, w)
	return ctx
}

func GetRequest(ctx context.Context) *http.Request {
	r, _ := ctx.Value(requestKey).(*http.Request)
	return r
}

func GetResponseWriter(ctx context.Context) http.ResponseWriter {
	w, _ := ctx.Value(responseWriterKey).(http.ResponseWriter)
	return w
}

// ClientIP returns the address of the caller behind ctx.
func ClientIP(ctx context.Context) string {
	r := GetRequest(ctx)
	if r == nil {
		return DefaultClientIP
	}
	if ip := utils.ClientIP(r); ip != "" {
		return ip
	}
	return DefaultClientIP
}

// Middleware exposes the request to code that only receives a context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithHTTP(r.Context(), r, w)))
	})
}
