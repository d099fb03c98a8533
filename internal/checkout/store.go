package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/lock"
)

const (
	sessionKeyPrefix  = "checkout:session:"
	DefaultSessionTTL = 2 * time.Hour
)

// Store keeps sessions in Redis with a sliding TTL.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Locker lock.Locker
	Now    func() time.Time
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if s == nil || s.R == nil {
		return Session{}, errors.New("checkout: session store not configured")
	}
	if id == "" {
		return Session{}, ErrSessionNotFound
	}
	data, err := s.R.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Save writes sess, refreshing its TTL.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if s == nil || s.R == nil {
		return errors.New("checkout: session store not configured")
	}
	sess.UpdatedAt = s.now()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, sessionKeyPrefix+sess.ID, data, s.ttl()).Err()
}

// Update runs fn on the stored session while holding the session lock. The
// session is written back whenever fn changed it, even if fn failed, so
// transitions into Failed are kept. fn's error is returned as is.
func (s *Store) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	var out Session
	var fnErr error
	err := s.Locker.WithLock(ctx, id, func(ctx context.Context) error {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		before, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		fnErr = fn(&sess)
		after, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		if !bytes.Equal(before, after) {
			sess.UpdatedAt = s.now()
			if err := s.Save(ctx, sess); err != nil {
				return err
			}
		}
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return out, fnErr
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultSessionTTL
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
