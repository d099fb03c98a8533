package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":         "redis://localhost:6379/0",
		"UPSTREAM_BASE_URL": "https://api.shop.example/v1",
		"DELIVERY_BASE_URL": "https://delivery.example/rates",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 10*time.Second, cfg.DeliveryTimeout)
	require.Equal(t, time.Hour, cfg.DeliveryCacheTTL)
	require.Equal(t, "30-M", cfg.DeliveryRateLimit)
	require.Equal(t, 2, cfg.UpstreamRetryMaxAttempts)
	require.Equal(t, "5", cfg.TailLiftFee.String())
	require.Equal(t, "GBP", cfg.CurrencyCode)
	require.Equal(t, 2*time.Hour, cfg.CheckoutSessionTTL)
	require.Equal(t, "checkout_sid", cfg.CheckoutSessionCookie)
	require.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite)
	require.True(t, cfg.CSRFEnabled)
	require.False(t, cfg.PaymentSessionEnabled)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAIL_LIFT_FEE"] = "7.499"
	env["CURRENCY_CODE"] = "eur"
	env["DELIVERY_TIMEOUT"] = "3s"
	env["COOKIE_SAMESITE"] = "strict"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, ,https://m.shop.example"
	env["PAYMENT_SESSION_ENABLED"] = "yes"
	env["UPSTREAM_TIMEOUT"] = "not-a-duration"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "7.5", cfg.TailLiftFee.String())
	require.Equal(t, "EUR", cfg.CurrencyCode)
	require.Equal(t, 3*time.Second, cfg.DeliveryTimeout)
	require.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite)
	require.Equal(t, []string{"https://shop.example", "https://m.shop.example"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.PaymentSessionEnabled)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing redis":     {"REDIS_URL": ""},
		"relative upstream": {"UPSTREAM_BASE_URL": "/api"},
		"missing delivery":  {"DELIVERY_BASE_URL": ""},
		"negative fee":      {"PRICING_TAIL_LIFT_FEE": "-1"},
		"bad currency":      {"CURRENCY_CODE": "POUND"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range override {
				env[k] = v
			}
			_, err := LoadForTests(env)
			require.Error(t, err)
		})
	}
}
