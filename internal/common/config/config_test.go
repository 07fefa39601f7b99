package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("REDIS_ADDRESS", "")

	path := writeConfig(t, "app:\n  name: checkout-test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout-test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "https://api.hubapi.com", cfg.CRM.BaseURL)
	assert.Equal(t, "dealname", cfg.CRM.Properties.Name)
	assert.Len(t, cfg.CRM.Properties.PaymentSlots, 5)
	assert.Equal(t, "usd", cfg.Checkout.Currency)
	assert.Equal(t, 600, cfg.Checkout.SessionTTL)
	assert.Equal(t, 30000, cfg.CRM.Timeout)
	assert.Equal(t, 30000, cfg.Stripe.Timeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.CRM.AccessToken)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-test")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	path := writeConfig(t, "checkout:\n  currency: USD\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "pat-test", cfg.CRM.AccessToken)
	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "usd", cfg.Checkout.Currency)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("CHECKOUT_TEST_PRODUCT", "Summer Program")

	path := writeConfig(t, "checkout:\n  product_name: ${CHECKOUT_TEST_PRODUCT}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Summer Program", cfg.Checkout.ProductName)
}

func TestLoadFromFile_UnsetPlaceholderIsEmpty(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("PUBLIC_URL", "")
	path := writeConfig(t, "redis:\n  address: ${CHECKOUT_TEST_UNSET_REDIS}\napp:\n  public_url: ${CHECKOUT_TEST_UNSET_URL}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.App.PublicURL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFromFile_TimeoutsAreIndependent(t *testing.T) {
	path := writeConfig(t, "crm:\n  timeout: 9000\nstripe:\n  timeout: 4000\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.CRM.Timeout)
	assert.Equal(t, 4000, cfg.Stripe.Timeout)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad currency", "checkout:\n  currency: dollars\n"},
		{"non numeric surcharge", "pricing:\n  surcharge_rate: lots\n"},
		{"wrong slot count", "crm:\n  properties:\n    payment_slots: [a, b]\n"},
		{"negative stripe timeout", "stripe:\n  timeout: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPricingConfig_Policy(t *testing.T) {
	p := PricingConfig{ApplicationFee: "300", SurchargeRate: "0.03"}

	policy, err := p.Policy()
	require.NoError(t, err)

	assert.True(t, policy.ApplicationFee.Equal(decimal.NewFromInt(300)))
	assert.True(t, policy.SurchargeRate.Equal(decimal.RequireFromString("0.03")))
	assert.True(t, policy.DepositTarget.Equal(decimal.NewFromInt(2500)))

	_, err = PricingConfig{DepositTarget: "x"}.Policy()
	assert.Error(t, err)
}
