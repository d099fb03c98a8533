package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed wraps a ulule fixed-window limiter.
type Fixed struct {
	l *limiter.Limiter
}

// NewFixed builds a limiter from a ulule formatted rate such as "30-M".
func NewFixed(store limiter.Store, formatted string) (*Fixed, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	return &Fixed{l: limiter.New(store, rate)}, nil
}

// NewRedisStore wires a ulule store backed by Redis.
func NewRedisStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

func (f *Fixed) Allow(ctx context.Context, key string) (Decision, error) {
	lctx, err := f.l.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
