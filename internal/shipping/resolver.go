package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

const maxRateBody = 64 << 10

// Doer executes an outbound request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Resolver turns a postal code into a delivery quote.
type Resolver struct {
	HTTP    Doer
	BaseURL string
	Cache   *QuoteCache
	Logger  zerolog.Logger
	Now     func() time.Time
}

// rateResponse is the delivery service reply. Prices may arrive as decimal
// strings or JSON numbers; other fields are ignored.
type rateResponse struct {
	EconomyPrice any `json:"economy_price"`
	PremiumPrice any `json:"premium_price"`
}

// Resolve canonicalises postalCode and returns its quote, from cache when
// possible. Every failure after validation is ErrDeliveryUnavailable.
func (r *Resolver) Resolve(ctx context.Context, postalCode string) (pricing.Quote, error) {
	code, err := ParsePostalCode(postalCode)
	if err != nil {
		obs.CountDeliveryLookup("invalid")
		return pricing.Quote{}, err
	}
	logger := r.Logger.With().Str("postal_code", code.Display).Logger()

	if q, ok, err := r.Cache.Get(ctx, code); err != nil {
		obs.CountDeliveryCache("error")
		logger.Warn().Err(err).Msg("delivery_cache_read_failed")
	} else if ok {
		obs.CountDeliveryCache("hit")
		obs.CountDeliveryLookup("ok")
		return q, nil
	} else {
		obs.CountDeliveryCache("miss")
	}

	q, err := r.fetch(ctx, code, &logger)
	if err != nil {
		obs.CountDeliveryLookup("unavailable")
		logger.Warn().Err(err).Msg("delivery_lookup_failed")
		return pricing.Quote{}, fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}
	obs.CountDeliveryLookup("ok")
	if err := r.Cache.Put(ctx, code, q); err != nil {
		logger.Warn().Err(err).Msg("delivery_cache_write_failed")
	}
	return q, nil
}

func (r *Resolver) fetch(ctx context.Context, code PostalCode, logger *zerolog.Logger) (pricing.Quote, error) {
	if r.HTTP == nil || strings.TrimSpace(r.BaseURL) == "" {
		return pricing.Quote{}, errors.New("delivery service not configured")
	}
	endpoint := strings.TrimRight(r.BaseURL, "/") + "/" + url.PathEscape(code.Compact)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pricing.Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.HTTP.Do(ctx, req)
	if err != nil {
		return pricing.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxRateBody))
		return pricing.Quote{}, fmt.Errorf("delivery service returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRateBody))
	if err != nil {
		return pricing.Quote{}, err
	}

	var payload rateResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return pricing.Quote{}, fmt.Errorf("malformed rate response: %w", err)
	}
	if dec.More() {
		return pricing.Quote{}, errors.New("malformed rate response: trailing data")
	}

	q := pricing.Quote{
		PostalCode: code.Display,
		Economy:    parseRate(payload.EconomyPrice, "economy", logger),
		Premium:    parseRate(payload.PremiumPrice, "premium", logger),
		FetchedAt:  r.now(),
	}
	if len(q.Methods()) == 0 {
		return pricing.Quote{}, errors.New("no delivery method priced")
	}
	return q, nil
}

func parseRate(raw any, method string, logger *zerolog.Logger) decimal.NullDecimal {
	if s, ok := raw.(string); raw == nil || (ok && strings.TrimSpace(s) == "") {
		return decimal.NullDecimal{}
	}
	price, ok := pricing.ParseMoney(raw)
	if !ok {
		logger.Warn().Str("method", method).Interface("value", raw).Msg("delivery_price_unparsable")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price)
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
