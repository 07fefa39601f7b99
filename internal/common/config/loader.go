// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (plus config.<env>.yaml when present), the
// .env file and the process environment. A missing config file is not an
// error: the defaults plus environment are enough to serve requests.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from their conventional env names.
func overrideEmptyConfig(cfg *Config) {
	if cfg.CRM.AccessToken == "" {
		if val := os.Getenv("HUBSPOT_ACCESS_TOKEN"); val != "" {
			cfg.CRM.AccessToken = val
		}
	}
	if cfg.Stripe.SecretKey == "" {
		if val := os.Getenv("STRIPE_SECRET_KEY"); val != "" {
			cfg.Stripe.SecretKey = val
		}
	}
	if cfg.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Redis.Address = val
		}
	}
	if cfg.App.PublicURL == "" {
		if val := os.Getenv("PUBLIC_URL"); val != "" {
			cfg.App.PublicURL = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tuition-checkout"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.CRM.BaseURL == "" {
		cfg.CRM.BaseURL = "https://api.hubapi.com"
	}
	if cfg.CRM.Timeout == 0 {
		cfg.CRM.Timeout = 30000
	}
	if cfg.Stripe.Timeout == 0 {
		cfg.Stripe.Timeout = 30000
	}
	props := &cfg.CRM.Properties
	if props.Name == "" {
		props.Name = "dealname"
	}
	if props.TuitionAmount == "" {
		props.TuitionAmount = "tuition_amount"
	}
	if props.TotalAmountPaid == "" {
		props.TotalAmountPaid = "total_amount_paid"
	}
	if len(props.PaymentSlots) == 0 {
		props.PaymentSlots = []string{"payment_1", "payment_2", "payment_3", "payment_4", "payment_5"}
	}

	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = "usd"
	}
	cfg.Checkout.Currency = strings.ToLower(cfg.Checkout.Currency)
	if cfg.Checkout.ProductName == "" {
		cfg.Checkout.ProductName = "Program Tuition"
	}
	if cfg.Checkout.SessionTTL == 0 {
		cfg.Checkout.SessionTTL = 600
	}

	p := &cfg.Pricing
	if p.ApplicationFee == "" {
		p.ApplicationFee = "250"
	}
	if p.DepositTarget == "" {
		p.DepositTarget = "2500"
	}
	if p.DepositPromptThreshold == "" {
		p.DepositPromptThreshold = "2250"
	}
	if p.MinimumCustomPayment == "" {
		p.MinimumCustomPayment = "250"
	}
	if p.SurchargeRate == "" {
		p.SurchargeRate = "0.035"
	}
}

var validate = validator.New()

// validateConfig checks struct tags and that the pricing section parses.
// Credentials are not required at load time.
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}
	if _, err := cfg.Pricing.Policy(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}
