package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/redisclient"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// LimitConfig bounds how often one client may trigger an extraction.
type LimitConfig struct {
	RequestsPerMinute int
	ParallelRequests  int
}

func FromConfig(cfg config.RateLimitConfig) LimitConfig {
	return LimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		ParallelRequests:  cfg.ParallelRequests,
	}
}

// Enabled reports whether any limit is set.
func (c LimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.ParallelRequests > 0
}

// RateLimiter keeps fixed-window counters and a concurrency semaphore in Redis.
// A nil limiter or nil client allows everything.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow admits one request for key. A successful call with ParallelRequests
// set must be paired with Release.
func (l *RateLimiter) Allow(ctx context.Context, key string, cfg LimitConfig) error {
	if l == nil || l.client == nil {
		return nil
	}

	if cfg.RequestsPerMinute > 0 {
		if err := l.countCheck(ctx, redisclient.Key("rpm", key), time.Minute, cfg.RequestsPerMinute); err != nil {
			return err
		}
	}
	if cfg.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, redisclient.Key("sem", key), cfg.ParallelRequests); err != nil {
			return err
		}
	}

	return nil
}

func (l *RateLimiter) Release(ctx context.Context, key string, cfg LimitConfig) {
	if l == nil || l.client == nil {
		return
	}
	if cfg.ParallelRequests > 0 {
		l.semaphoreRelease(ctx, redisclient.Key("sem", key))
	}
}

func (l *RateLimiter) countCheck(ctx context.Context, key string, ttl time.Duration, limit int) error {
	now := time.Now().UTC().Unix() / int64(ttl.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, now)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, ttl)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreAcquire(ctx context.Context, key string, max int) error {
	// extractions can run for minutes; the ttl only clears leaked slots
	ttl := 10 * time.Minute
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, key, ttl)
	}
	if int(cnt) > max {
		l.client.Decr(ctx, key)
		return ErrLimitExceeded
	}
	return nil
}

func (l *RateLimiter) semaphoreRelease(ctx context.Context, key string) {
	l.client.Decr(ctx, key)
}
