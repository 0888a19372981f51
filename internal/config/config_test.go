package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("VNPAY_TMN_CODE", "TMN00001")
	t.Setenv("VNPAY_HASH_SECRET", "hash-secret")
}

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("VNPAY_RETURN_URL", "https://shop.example/return")
		t.Setenv("VNPAY_PAYMENT_TTL", "20m")
		t.Setenv("VNPAY_HTTP_TIMEOUT", "5")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "TMN00001", cfg.Gateway.TmnCode)
		assert.Equal(t, "hash-secret", cfg.Gateway.HashSecret)
		assert.Equal(t, "https://shop.example/return", cfg.Gateway.ReturnURL)
		assert.Equal(t, 20*time.Minute, cfg.Gateway.PaymentTTL)
		assert.Equal(t, 5*time.Second, cfg.Gateway.HTTPTimeout)
	})

	t.Run("Defaults", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_PORT", "")
		t.Setenv("VNPAY_PAYMENT_TTL", "")
		t.Setenv("VNPAY_HTTP_TIMEOUT", "")
		t.Setenv("VNPAY_VERSION", "")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "2.1.0", cfg.Gateway.Version)
		assert.Equal(t, "VND", cfg.Gateway.CurrCode)
		assert.Equal(t, 15*time.Minute, cfg.Gateway.PaymentTTL)
		assert.Equal(t, 15*time.Second, cfg.Gateway.HTTPTimeout)
		assert.Equal(t, "0.10", cfg.TaxRate)
	})

	t.Run("Missing hash secret", func(t *testing.T) {
		setRequired(t)
		t.Setenv("VNPAY_HASH_SECRET", "")

		cfg, err := LoadConfig()
		assert.Nil(t, cfg)
		assert.True(t, errors.Is(err, ErrMissingConfig))
		assert.Contains(t, err.Error(), "VNPAY_HASH_SECRET")
	})

	t.Run("Invalid duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("VNPAY_PAYMENT_TTL", "soon")

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
