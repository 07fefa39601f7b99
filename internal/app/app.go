// Package app wires configuration into the request handler shared by the
// stand-alone server and the serverless entry point.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"tuition-checkout/internal/common/config"
	"tuition-checkout/internal/common/database"
	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/common/logger"
	"tuition-checkout/internal/common/metrics"
	"tuition-checkout/internal/common/middleware"
	"tuition-checkout/internal/common/observability"
	"tuition-checkout/internal/common/payments"
	tp "tuition-checkout/internal/handlers/tuition-payment"
)

// App holds the immutable, request-independent dependencies.
type App struct {
	Handler http.Handler
	Redis   *database.RedisClient // nil when session reuse is disabled
	Obs     *observability.Observability
	Logger  logger.Logger
}

// New builds the handler chain. Missing credentials do not fail here; the
// affected requests answer CONFIGURATION_ERROR instead.
func New(cfg *config.Config, zapLog *zap.Logger) (*App, error) {
	log := logger.NewZapAdapter(zapLog)

	hcfg, err := tp.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout configuration: %w", err)
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("OpenTelemetry exporter unavailable", map[string]interface{}{"error": err.Error()})
	}

	crm := hubspot.NewClient(
		cfg.CRM.BaseURL,
		cfg.CRM.AccessToken,
		config.GetDuration(cfg.CRM.Timeout),
		hcfg.Properties,
		hubspot.WithObserver(metrics.ObserveCRM),
	)

	checkout := payments.NewStripeCheckout(payments.StripeOptions{
		SecretKey: cfg.Stripe.SecretKey,
		Currency:  cfg.Checkout.Currency,
		BaseURL:   cfg.Stripe.BaseURL,
		Timeout:   config.GetDuration(cfg.Stripe.Timeout),
		Logger:    zapLog.Named("stripe").Sugar(),
	})

	a := &App{Obs: obs, Logger: log}

	deps := tp.ServiceDependencies{
		Logger:        log,
		CRM:           crm,
		Checkout:      checkout,
		Observability: obs,
	}
	if cfg.Redis.Enabled() {
		a.Redis = database.NewRedis(cfg.Redis)
		deps.Cache = tp.NewRedisSessionCache(a.Redis, hcfg.SessionTTL)
	}

	renderer, err := tp.NewRenderer()
	if err != nil {
		return nil, err
	}

	handler := tp.NewHandler(tp.NewService(deps, hcfg), renderer, log, hcfg.PublicURL)

	a.Handler = middleware.Chain(handler,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Metrics(tp.FlowOf),
		middleware.Recovery(log),
	)

	log.Info("Checkout handler initialized", map[string]interface{}{
		"environment":   cfg.App.Environment,
		"crmConfigured": crm.Configured(),
		"stripeEnabled": checkout.Configured(),
		"sessionReuse":  cfg.Redis.Enabled(),
	})
	return a, nil
}

// Ready checks the optional dependencies.
func (a *App) Ready(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Obs.Shutdown()
}
