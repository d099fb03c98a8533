package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	RedisURL        string
	UpstreamBaseURL string
	DeliveryBaseURL string

	DeliveryTimeout   time.Duration
	DeliveryCacheTTL  time.Duration
	DeliveryRateLimit string

	UpstreamTimeout          time.Duration
	UpstreamRetryMaxAttempts int
	UpstreamRetryBackoff     time.Duration

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration

	TailLiftFee  decimal.Decimal
	CurrencyCode string

	CheckoutSessionTTL    time.Duration
	CheckoutSessionCookie string
	SubmitGuardTTL        time.Duration
	SubmitRateLimit       int
	SubmitRateWindow      time.Duration
	PaymentSessionEnabled bool

	AccessTokenCookie  string
	AccessTokenSkew    time.Duration
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     http.SameSite
	CORSAllowedOrigins []string
	CSRFEnabled        bool

	IdempotencyTTL   time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	BodyLimitBytes   int64
	UploadLimitBytes int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), "development"),
		Port:   valueOrDefault(k.String("PORT"), "8080"),

		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),
		UpstreamBaseURL: strings.TrimSpace(k.String("UPSTREAM_BASE_URL")),
		DeliveryBaseURL: strings.TrimSpace(k.String("DELIVERY_BASE_URL")),

		DeliveryTimeout:   parseDuration(k.String("DELIVERY_TIMEOUT"), "10s"),
		DeliveryCacheTTL:  parseDuration(k.String("DELIVERY_CACHE_TTL"), "1h"),
		DeliveryRateLimit: valueOrDefault(k.String("DELIVERY_RATE_LIMIT"), "30-M"),

		UpstreamTimeout:          parseDuration(k.String("UPSTREAM_TIMEOUT"), "15s"),
		UpstreamRetryMaxAttempts: parseInt(k.String("UPSTREAM_RETRY_MAX_ATTEMPTS"), 2),
		UpstreamRetryBackoff:     parseDuration(k.String("UPSTREAM_RETRY_BACKOFF"), "200ms"),

		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		CurrencyCode: strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "GBP")),

		CheckoutSessionTTL:    parseDuration(k.String("CHECKOUT_SESSION_TTL"), "2h"),
		CheckoutSessionCookie: valueOrDefault(k.String("CHECKOUT_SESSION_COOKIE"), "checkout_sid"),
		SubmitGuardTTL:        parseDuration(k.String("SUBMIT_GUARD_TTL"), "24h"),
		SubmitRateLimit:       parseInt(k.String("SUBMIT_RATE_LIMIT"), 5),
		SubmitRateWindow:      parseDuration(k.String("SUBMIT_RATE_WINDOW"), "1m"),
		PaymentSessionEnabled: parseBool(k.String("PAYMENT_SESSION_ENABLED")),

		AccessTokenCookie:  valueOrDefault(k.String("ACCESS_TOKEN_COOKIE"), "access_token"),
		AccessTokenSkew:    parseDuration(k.String("ACCESS_TOKEN_SKEW"), "30s"),
		CookieDomain:       strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:       parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:     parseSameSite(k.String("COOKIE_SAMESITE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CSRFEnabled:        parseBool(valueOrDefault(k.String("CSRF_ENABLED"), "true")),

		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:          parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "25ms"),

		BodyLimitBytes:   int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		UploadLimitBytes: int64(parseInt(k.String("UPLOAD_LIMIT_BYTES"), 10<<20)),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	fee, err := decimal.NewFromString(valueOrDefault(k.String("PRICING_TAIL_LIFT_FEE"), "5.00"))
	if err != nil || fee.IsNegative() {
		return nil, errors.New("PRICING_TAIL_LIFT_FEE must be a non-negative decimal")
	}
	cfg.TailLiftFee = fee.Round(2)

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	for name, raw := range map[string]string{
		"UPSTREAM_BASE_URL": cfg.UpstreamBaseURL,
		"DELIVERY_BASE_URL": cfg.DeliveryBaseURL,
	} {
		if err := requireHTTPURL(name, raw); err != nil {
			return nil, err
		}
	}
	if len(cfg.CurrencyCode) != 3 {
		return nil, fmt.Errorf("CURRENCY_CODE must be an ISO 4217 code, got %q", cfg.CurrencyCode)
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

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func requireHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", name)
	}
	return nil
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
		return strings.TrimSpace(value)
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

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
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
