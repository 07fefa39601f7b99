package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNotConfigured is returned when no secret key was supplied.
var ErrNotConfigured = errors.New("payments: checkout provider not configured")

// SessionRequest describes a single-line-item hosted checkout.
type SessionRequest struct {
	Name           string
	Description    string
	UnitAmount     int64 // minor units
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// Session is the created hosted checkout.
type Session struct {
	ID  string
	URL string
}

type StripeOptions struct {
	SecretKey string
	Currency  string
	// BaseURL points the client at another API host (stripe-mock, tests).
	BaseURL string
	Timeout time.Duration
	Logger  stripe.LeveledLoggerInterface
}

// StripeCheckout creates Stripe Checkout sessions in payment mode.
type StripeCheckout struct {
	api      *client.API
	currency string
}

func NewStripeCheckout(opts StripeOptions) *StripeCheckout {
	if opts.SecretKey == "" {
		return &StripeCheckout{currency: opts.Currency}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: opts.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}
	if opts.Logger != nil {
		cfg.LeveledLogger = opts.Logger
	}

	api := &client.API{}
	api.Init(opts.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})

	return &StripeCheckout{api: api, currency: opts.Currency}
}

// Configured reports whether a secret key was supplied.
func (s *StripeCheckout) Configured() bool {
	return s != nil && s.api != nil
}

func (s *StripeCheckout) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	if req.UnitAmount <= 0 {
		return nil, fmt.Errorf("payments: unit amount must be positive, got %d", req.UnitAmount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(s.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Name),
				},
				UnitAmount: stripe.Int64(req.UnitAmount),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.Description != "" {
		params.LineItems[0].PriceData.ProductData.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if cs.URL == "" {
		return nil, fmt.Errorf("checkout session %s has no redirect url", cs.ID)
	}
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}
