// Package config assembles runtime configuration from defaults, a .env file,
// and environment variables, organised by concern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultDatabaseHost     = "localhost"
	defaultDatabasePort     = "5432"
	defaultDatabaseName     = "sokoline"
	defaultDatabaseUser     = "postgres"
	defaultDatabaseSSLMode  = "disable"
	defaultRedisAddr        = "localhost:6379"
	defaultCacheTTL         = 60 * time.Second
	defaultTokenTTL         = 24 * time.Hour
	defaultCurrency         = "KES"
	defaultTaxBasisPoints   = 1600
	defaultShippingFlat     = 35000
	defaultFreeShippingOver = 500000
	defaultRateLimitDefault = 120
	defaultRateLimitAuth    = 240
	defaultMpesaBaseURL     = "https://sandbox.safaricom.co.ke"
	defaultPaypalBaseURL    = "https://api-m.sandbox.paypal.com"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	PSP        PSPConfig
	Pricing    PricingConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores Postgres connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig configures the response cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
	Enabled  bool
}

// KafkaConfig configures event publishing. Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
	StockTopic  string
}

// AuthConfig groups JWT verification settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PSPConfig collects secrets for payment providers.
type PSPConfig struct {
	StripeAPIKey        string
	StripeWebhookSecret string
	MpesaBaseURL        string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPasskey        string
	MpesaCallbackURL    string
	MpesaWebhookSecret  string
	PaypalBaseURL       string
	PaypalClientID      string
	PaypalSecret        string
	PaypalReturnURL     string
	PaypalCancelURL     string
	PaypalWebhookSecret string
}

// PricingConfig drives server-side order total computation.
type PricingConfig struct {
	Currency                   string
	TaxBasisPoints             int64
	ShippingFlatCents          int64
	FreeShippingThresholdCents int64
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute       int
	AuthenticatedPerMinute int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Host:     stringWithDefault(lookup, "API_DB_HOST", defaultDatabaseHost),
			Port:     stringWithDefault(lookup, "API_DB_PORT", defaultDatabasePort),
			Name:     stringWithDefault(lookup, "API_DB_NAME", defaultDatabaseName),
			User:     stringWithDefault(lookup, "API_DB_USER", defaultDatabaseUser),
			Password: stringWithDefault(lookup, "API_DB_PASSWORD", ""),
			SSLMode:  stringWithDefault(lookup, "API_DB_SSLMODE", defaultDatabaseSSLMode),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", defaultRedisAddr),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
			CacheTTL: durationWithDefault(lookup, "API_REDIS_CACHE_TTL", defaultCacheTTL),
			Enabled:  boolWithDefault(lookup, "API_REDIS_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers:     csvWithDefault(lookup, "API_KAFKA_BROKERS"),
			OrdersTopic: stringWithDefault(lookup, "API_KAFKA_ORDERS_TOPIC", "orders.events"),
			StockTopic:  stringWithDefault(lookup, "API_KAFKA_STOCK_TOPIC", "stock.events"),
		},
		Auth: AuthConfig{
			JWTSecret: stringWithDefault(lookup, "API_AUTH_JWT_SECRET", ""),
			TokenTTL:  durationWithDefault(lookup, "API_AUTH_TOKEN_TTL", defaultTokenTTL),
		},
		PSP: PSPConfig{
			StripeAPIKey:        stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
			StripeWebhookSecret: stringWithDefault(lookup, "API_PSP_STRIPE_WEBHOOK_SECRET", ""),
			MpesaBaseURL:        stringWithDefault(lookup, "API_PSP_MPESA_BASE_URL", defaultMpesaBaseURL),
			MpesaConsumerKey:    stringWithDefault(lookup, "API_PSP_MPESA_CONSUMER_KEY", ""),
			MpesaConsumerSecret: stringWithDefault(lookup, "API_PSP_MPESA_CONSUMER_SECRET", ""),
			MpesaShortCode:      stringWithDefault(lookup, "API_PSP_MPESA_SHORT_CODE", ""),
			MpesaPasskey:        stringWithDefault(lookup, "API_PSP_MPESA_PASSKEY", ""),
			MpesaCallbackURL:    stringWithDefault(lookup, "API_PSP_MPESA_CALLBACK_URL", ""),
			MpesaWebhookSecret:  stringWithDefault(lookup, "API_PSP_MPESA_WEBHOOK_SECRET", ""),
			PaypalBaseURL:       stringWithDefault(lookup, "API_PSP_PAYPAL_BASE_URL", defaultPaypalBaseURL),
			PaypalClientID:      stringWithDefault(lookup, "API_PSP_PAYPAL_CLIENT_ID", ""),
			PaypalSecret:        stringWithDefault(lookup, "API_PSP_PAYPAL_SECRET", ""),
			PaypalReturnURL:     stringWithDefault(lookup, "API_PSP_PAYPAL_RETURN_URL", ""),
			PaypalCancelURL:     stringWithDefault(lookup, "API_PSP_PAYPAL_CANCEL_URL", ""),
			PaypalWebhookSecret: stringWithDefault(lookup, "API_PSP_PAYPAL_WEBHOOK_SECRET", ""),
		},
		Pricing: PricingConfig{
			Currency:                   strings.ToUpper(stringWithDefault(lookup, "API_PRICING_CURRENCY", defaultCurrency)),
			TaxBasisPoints:             int64WithDefault(lookup, "API_PRICING_TAX_BPS", defaultTaxBasisPoints),
			ShippingFlatCents:          int64WithDefault(lookup, "API_PRICING_SHIPPING_FLAT_CENTS", defaultShippingFlat),
			FreeShippingThresholdCents: int64WithDefault(lookup, "API_PRICING_FREE_SHIPPING_THRESHOLD_CENTS", defaultFreeShippingOver),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute:       intWithDefault(lookup, "API_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
			AuthenticatedPerMinute: intWithDefault(lookup, "API_RATELIMIT_AUTH_PER_MIN", defaultRateLimitAuth),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Database.Host == "" {
		missing = append(missing, "Database.Host")
	}
	if cfg.Database.Name == "" {
		missing = append(missing, "Database.Name")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "Auth.TokenTTL")
	}
	if cfg.Pricing.Currency == "" || len(cfg.Pricing.Currency) != 3 {
		missing = append(missing, "Pricing.Currency")
	}
	if cfg.Pricing.TaxBasisPoints < 0 {
		missing = append(missing, "Pricing.TaxBasisPoints")
	}
	if cfg.Pricing.ShippingFlatCents < 0 {
		missing = append(missing, "Pricing.ShippingFlatCents")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
