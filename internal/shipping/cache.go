package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/pricing"
)

const (
	quoteKeyPrefix  = "delivery:quote:"
	DefaultQuoteTTL = time.Hour
)

// QuoteCache stores resolved quotes in Redis keyed by compact postal code.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCache constructs a cache helper. A nil client disables caching.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &QuoteCache{client: client, ttl: ttl}
}

// Get returns the cached quote for code and reports whether it existed.
func (c *QuoteCache) Get(ctx context.Context, code PostalCode) (pricing.Quote, bool, error) {
	if c == nil || c.client == nil {
		return pricing.Quote{}, false, nil
	}
	data, err := c.client.Get(ctx, quoteKeyPrefix+code.Compact).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pricing.Quote{}, false, nil
		}
		return pricing.Quote{}, false, err
	}
	var q pricing.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return pricing.Quote{}, false, err
	}
	return q, true, nil
}

// Put stores q with the configured TTL.
func (c *QuoteCache) Put(ctx context.Context, code PostalCode, q pricing.Quote) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quoteKeyPrefix+code.Compact, data, c.ttl).Err()
}
