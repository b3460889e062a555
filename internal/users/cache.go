package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"call-router/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyByID    = "users:id:"
	cacheKeyByPhone = "users:phone:"
)

// CachedRepo is a Redis read-through cache in front of another Repository.
// Cache failures are logged and fall through to the backing repository.
type CachedRepo struct {
	next Repository
	rdb  redis.UniversalClient
	ttl  time.Duration
}

func NewCachedRepo(next Repository, rdb redis.UniversalClient, ttl time.Duration) *CachedRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepo{next: next, rdb: rdb, ttl: ttl}
}

// List is not cached; it is an admin-only path.
func (c *CachedRepo) List(ctx context.Context) ([]User, error) {
	return c.next.List(ctx)
}

func (c *CachedRepo) Get(ctx context.Context, userID string) (User, error) {
	return c.readThrough(ctx, cacheKeyByID+userID, func() (User, error) {
		return c.next.Get(ctx, userID)
	})
}

func (c *CachedRepo) GetByPhoneNumber(ctx context.Context, phone string) (User, error) {
	return c.readThrough(ctx, cacheKeyByPhone+phone, func() (User, error) {
		return c.next.GetByPhoneNumber(ctx, phone)
	})
}

func (c *CachedRepo) Update(ctx context.Context, userID string, f Fields, now time.Time) (User, error) {
	u, err := c.next.Update(ctx, userID, f, now)
	if err != nil {
		return User{}, err
	}
	keys := []string{cacheKeyByID + userID}
	if u.PhoneNumber != "" {
		keys = append(keys, cacheKeyByPhone+u.PhoneNumber)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logger.From(ctx).Warn("users cache invalidation failed", "user_id", userID, "err", err)
	}
	return u, nil
}

func (c *CachedRepo) readThrough(ctx context.Context, key string, load func() (User, error)) (User, error) {
	log := logger.From(ctx)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u User
		if err := json.Unmarshal(raw, &u); err == nil {
			return u, nil
		}
		log.Warn("users cache entry undecodable, reloading", "key", key)
	case !errors.Is(err, redis.Nil):
		log.Warn("users cache read failed", "key", key, "err", err)
	}

	u, err := load()
	if err != nil {
		return User{}, err
	}
	if b, err := json.Marshal(u); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			log.Warn("users cache write failed", "key", key, "err", err)
		}
	}
	return u, nil
}
