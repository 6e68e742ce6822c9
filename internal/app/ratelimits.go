package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/limits"
	"github.com/ncecere/model_pricing_extractor/internal/requestctx"
)

// AcquireRateLimit admits the request described by ctx. The returned release
// must be called once the action finishes, even on error paths after success.
func (c *Container) AcquireRateLimit(ctx context.Context) (func(), error) {
	noop := func() {}
	if c == nil || c.RateLimiter == nil || !c.RateLimit.Enabled() {
		return noop, nil
	}
	rc, ok := requestctx.FromContext(ctx)
	if !ok {
		return noop, nil
	}

	key := rc.LimitKey()
	if err := c.RateLimiter.Allow(ctx, key, c.RateLimit); err != nil {
		if !errors.Is(err, limits.ErrLimitExceeded) {
			// fail open on redis errors
			c.Logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return noop, nil
		}
		return nil, err
	}
	return func() {
		c.RateLimiter.Release(context.WithoutCancel(ctx), key, c.RateLimit)
	}, nil
}
