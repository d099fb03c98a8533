package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/health"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/media"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/payment"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/security"
	"github.com/noah-isme/toko-storefront/internal/shipping"
	"github.com/noah-isme/toko-storefront/internal/upstream"
	"github.com/noah-isme/toko-storefront/internal/wishlist"
)

// Dependencies are the process-wide resources the router is built from.
type Dependencies struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Redis       *redis.Client
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	Pprof       http.Handler

	// Transport is the base round tripper for outbound calls. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper
	// LimiterStore backs the delivery lookup limiter. Defaults to Redis.
	LimiterStore limiter.Store
}

// NewRouter wires every service and returns the storefront HTTP handler.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Redis == nil {
		return nil, errors.New("app: redis client is required")
	}
	logger := deps.Logger

	upstreamHTTP := outboundClient(deps, "upstream", cfg.UpstreamTimeout, cfg.UpstreamRetryMaxAttempts)
	upstreamHTTP.BaseBackoff = cfg.UpstreamRetryBackoff
	upClient, err := upstream.New(cfg.UpstreamBaseURL, upstreamHTTP, logger)
	if err != nil {
		return nil, err
	}

	// delivery lookups are never retried automatically
	deliveryHTTP := outboundClient(deps, "delivery", cfg.DeliveryTimeout, 1)
	resolver := &shipping.Resolver{
		HTTP:    deliveryHTTP,
		BaseURL: cfg.DeliveryBaseURL,
		Cache:   shipping.NewQuoteCache(deps.Redis, cfg.DeliveryCacheTTL),
		Logger:  logger.With().Str("component", "delivery").Logger(),
	}

	var payments payment.Provider = payment.Disabled{}
	if cfg.PaymentSessionEnabled {
		payments = payment.Hosted{Upstream: upClient}
	}

	validate := validator.New()
	engine := pricing.Engine{TailLiftFee: cfg.TailLiftFee}

	cartSvc := &cart.Service{Upstream: upClient, Logger: logger}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate}

	checkoutSvc := &checkout.Service{
		Store: &checkout.Store{
			R:   deps.Redis,
			TTL: cfg.CheckoutSessionTTL,
			Locker: lock.Locker{
				R:            deps.Redis,
				Prefix:       "lock:checkout:",
				TTL:          cfg.LockTTL,
				RetryBackoff: cfg.LockRetryBackoff,
			},
		},
		Carts:    upClient,
		Resolver: resolver,
		Inflight: &shipping.Inflight{},
		Orders:   upClient,
		Payments: payments,
		Guard:    deps.Redis,
		GuardTTL: cfg.SubmitGuardTTL,
		Engine:   engine,
		Currency: cfg.CurrencyCode,
		Logger:   logger.With().Str("component", "checkout").Logger(),
	}
	checkoutHandler := &checkout.Handler{
		Svc: checkoutSvc,
		Cookie: checkout.CookieConfig{
			Name:     cfg.CheckoutSessionCookie,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
			TTL:      cfg.CheckoutSessionTTL,
		},
		Validate: validate,
	}

	deliveryHandler := &shipping.Handler{Resolver: resolver}
	wishlistHandler := &wishlist.Handler{Svc: &wishlist.Service{Upstream: upClient, Logger: logger}, Validate: validate}
	mediaHandler := &media.Handler{Upstream: upClient, Logger: logger}

	store := deps.LimiterStore
	if store == nil {
		store, err = ratelimit.NewRedisStore(deps.Redis, "ratelimit:delivery")
		if err != nil {
			return nil, fmt.Errorf("app: limiter store: %w", err)
		}
	}
	deliveryLimit, err := ratelimit.NewFixed(store, cfg.DeliveryRateLimit)
	if err != nil {
		return nil, err
	}
	deliveryLimiter := ratelimit.Handler{Limiter: deliveryLimit, Scope: "delivery"}
	submitLimiter := ratelimit.Handler{
		Limiter: ratelimit.Sliding{Client: deps.Redis, Prefix: "ratelimit:", Window: cfg.SubmitRateWindow, Max: cfg.SubmitRateLimit},
		Key:     ratelimit.SessionOrIP,
		Scope:   "submit",
	}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	relay := auth.Relay{AccessCookie: cfg.AccessTokenCookie, ClockSkew: cfg.AccessTokenSkew}
	csrf := security.CSRF{Cookies: []string{cfg.CheckoutSessionCookie, cfg.AccessTokenCookie}}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(checkout.SessionMiddleware(cfg.CheckoutSessionCookie))
	if deps.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if deps.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: deps.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if deps.Pprof != nil {
		r.Mount("/debug/pprof", deps.Pprof)
	}

	healthHandler := health.Handler{
		Probes: map[string]health.Probe{
			"redis":    health.RedisProbe(deps.Redis),
			"upstream": upClient.Ping,
		},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes, UploadMax: cfg.UploadLimitBytes}.Middleware)
		v.Use(relay.Middleware)
		if cfg.CSRFEnabled {
			v.Use(csrf.Middleware)
			v.Get("/csrf", csrf.TokenHandler(cfg.CookieDomain, cfg.CookieSecure))
		}

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{lineId}", cartHandler.UpdateItem)
			c.Delete("/items/{lineId}", cartHandler.RemoveItem)
		})

		v.With(deliveryLimiter.Middleware).Get("/delivery/{postalCode}", deliveryHandler.GetQuote)

		v.Route("/checkout/session", func(s chi.Router) {
			s.Post("/", checkoutHandler.Create)
			s.Get("/", checkoutHandler.Get)
			s.Put("/address", checkoutHandler.PutAddress)
			s.Post("/quote", checkoutHandler.RefreshQuote)
			s.Put("/selection", checkoutHandler.PutSelection)
			s.With(submitLimiter.Middleware, idem.Middleware).Post("/submit", checkoutHandler.Submit)
		})

		v.Post("/wishlist/merge", wishlistHandler.Merge)
		v.With(auth.RequireToken).Post("/account/uploads", mediaHandler.Upload)
	})

	return r, nil
}

func outboundClient(deps Dependencies, target string, timeout time.Duration, attempts int) *resilience.HTTPClient {
	base := deps.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := deps.Config
	logger := deps.Logger.With().Str("target", target).Logger()
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget(target).
		WithLogger(logger)
	return &resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(base)},
		Breaker:     breaker,
		MaxAttempts: attempts,
		Jitter:      0.2,
		Timeout:     timeout,
		Target:      target,
		Logger:      &logger,
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) > 0 {
		return cfg.CORSAllowedOrigins
	}
	if cfg.IsProduction() {
		return nil
	}
	return []string{"http://localhost:3000"}
}
