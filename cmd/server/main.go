package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warimas-pay/internal/api"
	"warimas-pay/internal/config"
	"warimas-pay/internal/db"
	"warimas-pay/internal/logger"
	"warimas-pay/internal/metrics"
	"warimas-pay/internal/middleware"
	"warimas-pay/internal/notification"
	"warimas-pay/internal/order"
	"warimas-pay/internal/payment"
	"warimas-pay/internal/payment/webhook"
	"warimas-pay/internal/transport"
	"warimas-pay/internal/vnpay"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	if err := run(cfg); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	log := logger.L()

	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid TAX_RATE %q: %w", cfg.TaxRate, err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; every bearer token will be rejected")
	}

	database := db.InitDB(cfg)
	defer database.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(registry)

	dispatcher := notification.NewDispatcher()
	defer dispatcher.Close()
	if err := notification.RegisterLogHooks(dispatcher); err != nil {
		return fmt.Errorf("register event hooks: %w", err)
	}

	clock := clockz.RealClock

	orderSvc := order.NewService(order.NewRepository(database), taxRate, dispatcher)
	paymentRepo := payment.NewRepository(database)

	engine := payment.NewEngine(paymentRepo, cfg.Gateway, clock, dispatcher)
	refunder := payment.NewRefunder(paymentRepo, vnpay.NewRefundClient(cfg.Gateway, clock), clock, dispatcher)
	checkout := payment.NewCheckout(orderSvc, paymentRepo, vnpay.NewRequestBuilder(cfg.Gateway, clock), engine, clock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewLimiter()
	go limiter.Run(ctx)

	router := setupRouter(
		routerConfig{JWTSecret: cfg.JWTSecret, InternalKey: cfg.InternalKey, CORSOrigin: cfg.CORSOrigin},
		api.NewHandler(orderSvc, checkout, refunder),
		webhook.NewWebhookHandler(engine, cfg.Gateway.HashSecret),
		limiter,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("payment server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routerConfig struct {
	JWTSecret   string
	InternalKey string
	CORSOrigin  string
}

func setupRouter(cfg routerConfig, orders *api.Handler, hooks *webhook.Handler, limiter *middleware.Limiter, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(transport.Middleware)
	r.Use(middleware.Internal(cfg.InternalKey))
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Use(middleware.LoggingMiddleware)
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/payment/vnpay", func(r chi.Router) {
		r.Get("/ipn", hooks.IPNHandler)
		r.Get("/return", hooks.ReturnHandler)
	})

	orders.Register(r)

	return r
}
