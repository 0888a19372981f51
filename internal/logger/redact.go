package logger

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var redactedKeys = map[string]bool{
	"vnp_SecureHash":     true,
	"vnp_SecureHashType": true,
}

type redactedParams map[string]string

func (p redactedParams) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(p))
	for k := range p {
		if !redactedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		enc.AddString(k, p[k])
	}
	return nil
}

// RedactParams logs gateway parameters without the signature fields.
func RedactParams(key string, params map[string]string) zap.Field {
	return zap.Object(key, redactedParams(params))
}
