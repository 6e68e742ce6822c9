package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ncecere/model_pricing_extractor/internal/adapters/anthropic"
	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:        "anthropic",
		Description: "Anthropic Messages API with a forced tool call",
		Builder:     buildAnthropicBinding,
	})
}

func buildAnthropicBinding(ctx context.Context, cfg *config.Config) (Binding, error) {
	cfg = EnsureConfig(cfg)
	apiKey := strings.TrimSpace(cfg.LLM.APIKey)
	if apiKey == "" {
		return Binding{}, fmt.Errorf("anthropic provider requires api key")
	}

	opts := anthropic.Options{
		APIKey:           apiKey,
		BaseURL:          strings.TrimSpace(cfg.LLM.BaseURL),
		DefaultMaxTokens: int64(cfg.LLM.MaxTokens),
	}
	if cfg.LLM.Timeout > 0 {
		opts.HTTPClient = &http.Client{Timeout: cfg.LLM.Timeout}
	}
	adapter, err := anthropic.New(opts)
	if err != nil {
		return Binding{}, err
	}

	md := map[string]string{}
	if opts.BaseURL != "" {
		md["base_url"] = opts.BaseURL
	}
	return Binding{
		Provider:   "anthropic",
		Model:      cfg.LLM.Model,
		Metadata:   md,
		Structurer: adapter,
		Health:     adapter.HealthCheck,
	}, nil
}
