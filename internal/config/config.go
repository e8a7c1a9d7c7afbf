package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string

	CartTTL         time.Duration
	PromoCacheTTL   time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	CouponServiceURL   string
	CouponAPIKey       string
	ShippingServiceURL string
	ShippingAPIKey     string
	ShippingOriginCode string

	HTTPRetryMax       int
	BreakerThreshold   int
	BreakerCooldown    time.Duration
	OutboundTimeout    time.Duration
	DefaultPageLimit   int
	OTLPEndpoint       string
	TracingSampleRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "IDR"),

		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		PromoCacheTTL:   parseDuration(k.String("PROMO_CACHE_TTL"), "60s"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "120s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CouponServiceURL:   k.String("COUPON_SERVICE_URL"),
		CouponAPIKey:       k.String("COUPON_API_KEY"),
		ShippingServiceURL: k.String("SHIPPING_SERVICE_URL"),
		ShippingAPIKey:     k.String("SHIPPING_API_KEY"),
		ShippingOriginCode: valueOrDefault(k.String("SHIPPING_ORIGIN_CODE"), "JKT"),

		HTTPRetryMax:       intOrDefault(k.Int("HTTP_RETRY_MAX"), 2),
		BreakerThreshold:   intOrDefault(k.Int("BREAKER_THRESHOLD"), 5),
		BreakerCooldown:    parseDuration(k.String("BREAKER_COOLDOWN"), "30s"),
		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
		DefaultPageLimit:   intOrDefault(k.Int("DEFAULT_PAGE_LIMIT"), 20),
		OTLPEndpoint:       k.String("OTLP_ENDPOINT"),
		TracingSampleRatio: floatOrDefault(k.Float64("TRACING_SAMPLE_RATIO"), 0.1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func floatOrDefault(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
