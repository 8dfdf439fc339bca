package types

import "time"

// OracleConfig configures the price oracle client.
type OracleConfig struct {
	BaseURL           string        `yaml:"base_url" json:"baseUrl,omitempty" validate:"omitempty,url"`
	APIKey            string        `yaml:"api_key" json:"apiKey,omitempty"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout,omitempty" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requestsPerMinute,omitempty" validate:"gte=0"`
}

// GatewayConfig configures the payment gateway client.
type GatewayConfig struct {
	BaseURL     string        `yaml:"base_url" json:"baseUrl" validate:"required,url"`
	APIKey      string        `yaml:"api_key" json:"apiKey" validate:"required"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout,omitempty" validate:"gte=0"`
	CallbackURL string        `yaml:"callback_url" json:"callbackUrl,omitempty" validate:"omitempty,url"`
	SuccessURL  string        `yaml:"success_url" json:"successUrl,omitempty" validate:"omitempty,url"`
	CancelURL   string        `yaml:"cancel_url" json:"cancelUrl,omitempty" validate:"omitempty,url"`
}

// Config is the deployment configuration of the checkout payment core.
type Config struct {
	LogLevel string `yaml:"log_level" json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFile  string `yaml:"log_file" json:"logFile,omitempty"`

	Oracle  OracleConfig  `yaml:"oracle" json:"oracle"`
	Gateway GatewayConfig `yaml:"gateway" json:"gateway"`

	WebhookSecret string `yaml:"webhook_secret" json:"-" validate:"required"`

	RateTTL            time.Duration `yaml:"rate_ttl" json:"rateTtl,omitempty" validate:"gte=0"`
	StaleFallbackLimit time.Duration `yaml:"stale_fallback_limit" json:"staleFallbackLimit,omitempty" validate:"gte=0"`

	EnableMetrics bool `yaml:"enable_metrics" json:"enableMetrics,omitempty"`
}

// ApplyDefaults fills zero values with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = DefaultOracleTimeout
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultGatewayTimeout
	}
	if c.RateTTL == 0 {
		c.RateTTL = RateTTL
	}
	if c.StaleFallbackLimit == 0 {
		c.StaleFallbackLimit = StaleFallbackLimit
	}
}
