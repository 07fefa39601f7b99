package tuitionpayment

import (
	"fmt"
	"strings"
	"time"

	"tuition-checkout/internal/common/config"
	"tuition-checkout/internal/common/hubspot"
	"tuition-checkout/internal/tuition"
)

type Config struct {
	// PublicURL overrides the base URL derived from the request for return links.
	PublicURL   string
	ProductName string
	SessionTTL  time.Duration
	Policy      tuition.Policy
	Properties  hubspot.DealProperties
}

func DefaultConfig() *Config {
	return &Config{
		ProductName: "Program Tuition",
		SessionTTL:  10 * time.Minute,
		Policy:      tuition.DefaultPolicy(),
		Properties: hubspot.DealProperties{
			Name:            "dealname",
			TuitionAmount:   "tuition_amount",
			TotalAmountPaid: "total_amount_paid",
			PaymentSlots:    [tuition.PaymentSlotCount]string{"payment_1", "payment_2", "payment_3", "payment_4", "payment_5"},
		},
	}
}

// FromAppConfig builds the handler config from the loaded application config.
func FromAppConfig(cfg *config.Config) (*Config, error) {
	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}

	c := DefaultConfig()
	c.PublicURL = strings.TrimRight(cfg.App.PublicURL, "/")
	if cfg.Checkout.ProductName != "" {
		c.ProductName = cfg.Checkout.ProductName
	}
	if cfg.Checkout.SessionTTL > 0 {
		c.SessionTTL = time.Duration(cfg.Checkout.SessionTTL) * time.Second
	}
	c.Policy = policy

	props := cfg.CRM.Properties
	if props.Name != "" {
		c.Properties.Name = props.Name
	}
	if props.TuitionAmount != "" {
		c.Properties.TuitionAmount = props.TuitionAmount
	}
	if props.TotalAmountPaid != "" {
		c.Properties.TotalAmountPaid = props.TotalAmountPaid
	}
	if len(props.PaymentSlots) == tuition.PaymentSlotCount {
		copy(c.Properties.PaymentSlots[:], props.PaymentSlots)
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if !c.Policy.SurchargeRate.IsPositive() {
		return fmt.Errorf("surcharge rate must be positive")
	}
	if !c.Policy.MinimumCustomPayment.IsPositive() {
		return fmt.Errorf("minimum custom payment must be positive")
	}
	if c.Properties.Name == "" || c.Properties.TuitionAmount == "" || c.Properties.TotalAmountPaid == "" {
		return fmt.Errorf("deal property names are required")
	}
	return nil
}
