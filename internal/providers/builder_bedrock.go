package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/model_pricing_extractor/internal/adapters/bedrock"
	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func init() {
	RegisterDefinition(Definition{
		Name:        "bedrock",
		Description: "AWS Bedrock (Anthropic Claude models, llm.model is the model id)",
		Builder:     buildBedrockBinding,
	})
}

func buildBedrockBinding(ctx context.Context, cfg *config.Config) (Binding, error) {
	cfg = EnsureConfig(cfg)
	aws := cfg.LLM.AWS

	region := strings.TrimSpace(aws.Region)
	if region == "" {
		return Binding{}, fmt.Errorf("aws region required for bedrock provider")
	}

	adapter, err := bedrock.New(ctx, bedrock.Options{
		Region:           region,
		Profile:          strings.TrimSpace(aws.Profile),
		AccessKeyID:      strings.TrimSpace(aws.AccessKeyID),
		SecretAccessKey:  strings.TrimSpace(aws.SecretAccessKey),
		SessionToken:     strings.TrimSpace(aws.SessionToken),
		DefaultMaxTokens: int32(cfg.LLM.MaxTokens),
	})
	if err != nil {
		return Binding{}, err
	}

	md := map[string]string{"region": region}
	if aws.Profile != "" {
		md["profile"] = aws.Profile
	}
	return Binding{
		Provider:   "bedrock",
		Model:      cfg.LLM.Model,
		Metadata:   md,
		Structurer: adapter,
		Health:     adapter.HealthCheck,
	}, nil
}
