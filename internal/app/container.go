package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/crawler"
	"github.com/ncecere/model_pricing_extractor/internal/health"
	"github.com/ncecere/model_pricing_extractor/internal/limits"
	"github.com/ncecere/model_pricing_extractor/internal/observability"
	"github.com/ncecere/model_pricing_extractor/internal/pricing"
	"github.com/ncecere/model_pricing_extractor/internal/providers"
	"github.com/ncecere/model_pricing_extractor/internal/redisclient"
)

// Container aggregates runtime dependencies for handlers and commands.
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Redis         *redis.Client
	RateLimiter   *limits.RateLimiter
	RateLimit     limits.LimitConfig
	Binding       *providers.Binding
	Crawler       *crawler.TavilyClient
	Extractor     *pricing.Extractor
	Service       *pricing.Service
	HealthMon     *health.Monitor
	Observability *observability.Provider
}

// NewContainer wires the extraction pipeline from cfg. A nil redisClient
// disables rate limiting. Missing credentials leave the pipeline unconfigured
// so every action reports the configuration error instead of failing startup.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, redisClient *redis.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	container := &Container{
		Config:        cfg,
		Logger:        logger,
		Redis:         redisClient,
		RateLimiter:   limits.NewRateLimiter(redisClient),
		RateLimit:     limits.FromConfig(cfg.RateLimits),
		HealthMon:     health.NewMonitor(cfg.Health, logger),
		Observability: obsProvider,
	}

	if err := container.buildCollaborators(ctx); err != nil {
		return nil, err
	}

	opts := pricing.ExtractorOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      logger,
		Metrics:     obsProvider,
	}
	if container.Crawler != nil && container.Binding != nil {
		opts.Crawler = container.Crawler
		opts.Structurer = container.Binding.Structurer
	}
	container.Extractor = pricing.NewExtractor(opts)
	container.Service = pricing.NewService(container.Extractor, cfg.Predefined, logger)

	if container.Binding != nil && container.Binding.Health != nil {
		container.HealthMon.Register("llm", container.Binding.Health)
	}
	if redisClient != nil {
		container.HealthMon.Register("redis", redisclient.HealthCheck(redisClient))
	}

	return container, nil
}

func (c *Container) buildCollaborators(ctx context.Context) error {
	cfg := c.Config
	if !cfg.CrawlerConfigured() || !cfg.LLMConfigured() {
		c.Logger.Warn("extraction disabled: credentials missing",
			zap.Bool("crawler_configured", cfg.CrawlerConfigured()),
			zap.Bool("llm_configured", cfg.LLMConfigured()),
			zap.String("llm_provider", cfg.LLM.Provider),
		)
		return nil
	}

	tavily, err := crawler.NewTavily(crawler.OptionsFromConfig(cfg.Crawler))
	if err != nil {
		return fmt.Errorf("init crawler: %w", err)
	}

	binding, err := providers.NewFactory(cfg).Build(ctx)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}

	c.Crawler = tavily
	c.Binding = &binding
	c.Logger.Info("extraction pipeline ready",
		zap.String("crawler", cfg.Crawler.Provider),
		zap.Any("llm", binding.Describe()),
	)
	return nil
}

// Configured reports whether both collaborators were built.
func (c *Container) Configured() bool {
	return c != nil && c.Extractor.Configured()
}

// Close releases background resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Observability == nil {
		return nil
	}
	return c.Observability.Shutdown(ctx)
}
