// internal/common/config/config.go
package config

import (
	"time"

	"github.com/shopspring/decimal"

	"tuition-checkout/internal/tuition"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	CRM      CRMConfig      `mapstructure:"crm"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	// PublicURL is the externally visible base URL used for checkout return
	// links. When empty it is derived from the incoming request.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address" validate:"required"`
	ReadTimeout     int    `mapstructure:"read_timeout" validate:"gt=0"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout" validate:"gt=0"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gt=0"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output" validate:"required"`
}

// CRMConfig holds the HubSpot connection and the deal property names.
type CRMConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     int           `mapstructure:"timeout" validate:"gt=0"` // milliseconds
	Properties  DealPropNames `mapstructure:"properties"`
}

// DealPropNames maps deal fields onto CRM property names.
type DealPropNames struct {
	Name            string   `mapstructure:"name" validate:"required"`
	TuitionAmount   string   `mapstructure:"tuition_amount" validate:"required"`
	TotalAmountPaid string   `mapstructure:"total_amount_paid" validate:"required"`
	PaymentSlots    []string `mapstructure:"payment_slots" validate:"len=5,dive,required"`
}

// CheckoutConfig holds settings for the hosted checkout flow.
type CheckoutConfig struct {
	Currency    string `mapstructure:"currency" validate:"len=3"`
	ProductName string `mapstructure:"product_name" validate:"required"`
	SessionTTL  int    `mapstructure:"session_ttl" validate:"gte=0"` // seconds
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	// BaseURL overrides the Stripe API endpoint (stripe-mock, tests).
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout int    `mapstructure:"timeout" validate:"gt=0"` // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// PricingConfig holds the money rules as decimal strings.
type PricingConfig struct {
	ApplicationFee         string `mapstructure:"application_fee" validate:"numeric"`
	DepositTarget          string `mapstructure:"deposit_target" validate:"numeric"`
	DepositPromptThreshold string `mapstructure:"deposit_prompt_threshold" validate:"numeric"`
	MinimumCustomPayment   string `mapstructure:"minimum_custom_payment" validate:"numeric"`
	SurchargeRate          string `mapstructure:"surcharge_rate" validate:"numeric"`
}

// Policy converts the pricing section into a tuition.Policy. Values that were
// left empty keep the production defaults.
func (p PricingConfig) Policy() (tuition.Policy, error) {
	policy := tuition.DefaultPolicy()
	fields := []struct {
		raw    string
		target *decimal.Decimal
	}{
		{p.ApplicationFee, &policy.ApplicationFee},
		{p.DepositTarget, &policy.DepositTarget},
		{p.DepositPromptThreshold, &policy.DepositPromptThreshold},
		{p.MinimumCustomPayment, &policy.MinimumCustomPayment},
		{p.SurchargeRate, &policy.SurchargeRate},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return tuition.Policy{}, err
		}
		*f.target = v
	}
	return policy, nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
