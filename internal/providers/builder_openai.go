package providers

import (
	"context"
	"fmt"
	"strings"

	native "github.com/ncecere/model_pricing_extractor/internal/adapters/openai"
	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:        "openai",
		Description: "OpenAI chat completions with strict json_schema output",
		Builder:     buildOpenAIBinding,
	})
	RegisterDefinition(Definition{
		Name:        "openai-compatible",
		Description: "OpenAI API-compatible endpoint (custom base URL)",
		Builder:     buildOpenAICompatibleBinding,
	})
}

func buildOpenAIBinding(ctx context.Context, cfg *config.Config) (Binding, error) {
	cfg = EnsureConfig(cfg)
	apiKey := strings.TrimSpace(cfg.LLM.APIKey)
	if apiKey == "" {
		return Binding{}, fmt.Errorf("openai provider requires api key (llm.api_key or OPENAI_API_KEY)")
	}
	opts := native.Options{
		APIKey:  apiKey,
		BaseURL: strings.TrimSpace(cfg.LLM.BaseURL),
		Timeout: cfg.LLM.Timeout,
	}
	adapter, err := native.New(opts)
	if err != nil {
		return Binding{}, err
	}

	md := map[string]string{}
	if opts.BaseURL != "" {
		md["base_url"] = opts.BaseURL
	}
	return Binding{
		Provider:   "openai",
		Model:      cfg.LLM.Model,
		Metadata:   md,
		Structurer: adapter,
		Health:     adapter.HealthCheck,
	}, nil
}

func buildOpenAICompatibleBinding(ctx context.Context, cfg *config.Config) (Binding, error) {
	cfg = EnsureConfig(cfg)
	baseURL := strings.TrimSpace(cfg.LLM.BaseURL)
	if baseURL == "" {
		return Binding{}, fmt.Errorf("openai-compatible provider requires llm.base_url")
	}
	apiKey := strings.TrimSpace(cfg.LLM.APIKey)
	if apiKey == "" {
		return Binding{}, fmt.Errorf("openai-compatible provider requires api key")
	}
	adapter, err := native.New(native.Options{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return Binding{}, err
	}
	return Binding{
		Provider:   "openai-compatible",
		Model:      cfg.LLM.Model,
		Metadata:   map[string]string{"base_url": baseURL},
		Structurer: adapter,
		Health:     adapter.HealthCheck,
	}, nil
}
