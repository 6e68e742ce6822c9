package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/model_pricing_extractor/internal/adapters/azureopenai"
	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:        "azure",
		Description: "Azure OpenAI deployment (llm.model is the deployment name)",
		Builder:     buildAzureBinding,
	})
}

func buildAzureBinding(ctx context.Context, cfg *config.Config) (Binding, error) {
	cfg = EnsureConfig(cfg)
	endpoint := strings.TrimSpace(cfg.LLM.Azure.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(cfg.LLM.BaseURL)
	}
	if endpoint == "" {
		return Binding{}, fmt.Errorf("azure provider requires llm.azure.endpoint")
	}
	apiKey := strings.TrimSpace(cfg.LLM.APIKey)
	if apiKey == "" {
		return Binding{}, fmt.Errorf("azure provider requires api key")
	}

	adapter, err := azureopenai.New(azureopenai.Options{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		APIVersion: strings.TrimSpace(cfg.LLM.Azure.APIVersion),
		Timeout:    cfg.LLM.Timeout,
	})
	if err != nil {
		return Binding{}, err
	}

	md := map[string]string{
		"endpoint":   endpoint,
		"deployment": cfg.LLM.Model,
	}
	if v := strings.TrimSpace(cfg.LLM.Azure.APIVersion); v != "" {
		md["api_version"] = v
	}
	return Binding{
		Provider:   "azure",
		Model:      cfg.LLM.Model,
		Metadata:   md,
		Structurer: adapter,
		Health:     adapter.HealthCheck,
	}, nil
}
