package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned by TryWithLock when another holder owns the key.
var ErrBusy = errors.New("lock: held by another holder")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker serialises read-modify-write cycles on a single key across API
// replicas using a Redis token lock.
type Locker struct {
	R            *redis.Client
	Prefix       string
	TTL          time.Duration
	RetryBackoff time.Duration
}

// WithLock blocks until the lock for key is held or ctx ends, then runs fn.
// The lock is released after fn returns, including on error.
func (l Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	name := l.key(key)
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, name, token, l.ttl()).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(name, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryWithLock runs fn only if the lock can be taken immediately.
func (l Locker) TryWithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := l.validate(fn); err != nil {
		return err
	}
	name := l.key(key)
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, name, token, l.ttl()).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrBusy
	}
	defer l.release(name, token)
	return fn(ctx)
}

func (l Locker) validate(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

func (l Locker) key(key string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "lock:"
	}
	return prefix + key
}

func (l Locker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 30 * time.Second
	}
	return l.TTL
}

func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
