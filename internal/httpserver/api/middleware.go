package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/app"
	"github.com/ncecere/model_pricing_extractor/internal/httpserver/httputil"
	"github.com/ncecere/model_pricing_extractor/internal/limits"
	"github.com/ncecere/model_pricing_extractor/internal/requestctx"
)

// requestContext attaches the caller description used by rate limits and logs.
func requestContext(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := &requestctx.Context{
			RequestID: c.GetRespHeader(fiber.HeaderXRequestID),
			ClientIP:  c.IP(),
			Action:    action,
			Started:   time.Now(),
		}
		c.Locals(requestctx.FiberLocalsKey(), rc)
		c.SetUserContext(requestctx.WithContext(c.UserContext(), rc))
		return c.Next()
	}
}

func rateLimit(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		release, err := container.AcquireRateLimit(c.UserContext())
		if err != nil {
			if errors.Is(err, limits.ErrLimitExceeded) {
				container.Logger.Info("rate limit exceeded", requestctx.LogFields(c.UserContext())...)
				return httputil.WriteError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
			}
			container.Logger.Error("rate limit check failed", zap.Error(err))
			return httputil.WriteError(c, fiber.StatusInternalServerError, "rate limit check failed")
		}
		defer release()
		return c.Next()
	}
}
