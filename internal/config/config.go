package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GatewayConfig carries everything the VNPay builder and refund client need.
// It is passed explicitly at construction; nothing reads it from globals.
type GatewayConfig struct {
	Version     string
	TmnCode     string
	HashSecret  string
	PayURL      string
	RefundURL   string
	ReturnURL   string
	Locale      string
	CurrCode    string
	OrderType   string
	PaymentTTL  time.Duration
	HTTPTimeout time.Duration
}

type Config struct {
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	AppPort     string
	AppEnv      string
	JWTSecret   string
	InternalKey string
	CORSOrigin  string
	TaxRate     string
	Gateway     GatewayConfig
}

var ErrMissingConfig = errors.New("missing required configuration")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:      os.Getenv("DB_HOST"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBPort:      os.Getenv("DB_PORT"),
		AppPort:     getEnv("APP_PORT", "8080"),
		AppEnv:      os.Getenv("APP_ENV"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		InternalKey: os.Getenv("INTERNAL_SECRET_KEY"),
		CORSOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		TaxRate:     getEnv("TAX_RATE", "0.10"),
		Gateway: GatewayConfig{
			Version:    getEnv("VNPAY_VERSION", "2.1.0"),
			TmnCode:    os.Getenv("VNPAY_TMN_CODE"),
			HashSecret: os.Getenv("VNPAY_HASH_SECRET"),
			PayURL:     getEnv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			RefundURL:  getEnv("VNPAY_REFUND_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnURL:  os.Getenv("VNPAY_RETURN_URL"),
			Locale:     getEnv("VNPAY_LOCALE", "vn"),
			CurrCode:   getEnv("VNPAY_CURR_CODE", "VND"),
			OrderType:  getEnv("VNPAY_ORDER_TYPE", "other"),
		},
	}

	var err error
	if cfg.Gateway.PaymentTTL, err = getDuration("VNPAY_PAYMENT_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Gateway.HTTPTimeout, err = getDuration("VNPAY_HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	switch {
	case cfg.DBHost == "":
		return nil, fmt.Errorf("%w: DB_HOST", ErrMissingConfig)
	case cfg.Gateway.TmnCode == "":
		return nil, fmt.Errorf("%w: VNPAY_TMN_CODE", ErrMissingConfig)
	case cfg.Gateway.HashSecret == "":
		return nil, fmt.Errorf("%w: VNPAY_HASH_SECRET", ErrMissingConfig)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("15m") or plain seconds ("900").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}
