package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "pricing"

const pingTimeout = 3 * time.Second

// Key joins parts under KeyPrefix, e.g. Key("rpm", "custom:10.0.0.1").
func Key(parts ...string) string {
	return strings.Join(append([]string{KeyPrefix}, parts...), ":")
}

// Options turns redis.url into client options. A redis://, rediss:// or
// unix:// URL is parsed as such; anything else is taken as host:port.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("redis.url is empty")
	}

	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis.url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}

	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return opts, nil
}

// Connect returns a pinged client, or nil when redis.url is unset so rate
// limiting stays off.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		logger.Info("redis.url not set; rate limiting disabled")
		return nil, nil
	}

	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	client.AddHook(skipMaintNotifications{})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return client, nil
}

// Ping verifies connectivity to Redis with a short timeout.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return errors.New("redis client not configured")
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(timeoutCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// HealthCheck adapts Ping to the health monitor's probe signature.
func HealthCheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return Ping(ctx, client)
	}
}

// skipMaintNotifications drops the CLIENT MAINT_NOTIFICATIONS handshake that
// older servers and miniredis reject.
type skipMaintNotifications struct{}

func (skipMaintNotifications) DialHook(next redis.DialHook) redis.DialHook { return next }

func (skipMaintNotifications) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if isMaintNotifications(cmd) {
			return nil
		}
		return next(ctx, cmd)
	}
}

func (skipMaintNotifications) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		kept := cmds[:0]
		for _, cmd := range cmds {
			if !isMaintNotifications(cmd) {
				kept = append(kept, cmd)
			}
		}
		return next(ctx, kept)
	}
}

func isMaintNotifications(cmd redis.Cmder) bool {
	args := cmd.Args()
	if len(args) < 2 || !strings.EqualFold(cmd.FullName(), "client") {
		return false
	}
	sub, ok := args[1].(string)
	return ok && strings.EqualFold(sub, "maint_notifications")
}
