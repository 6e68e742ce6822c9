package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

// Builder constructs the inference binding for one provider.
type Builder func(ctx context.Context, cfg *config.Config) (Binding, error)

// Factory builds the inference binding from configuration using a registry of builders.
type Factory struct {
	cfg      *config.Config
	builders map[string]Builder
}

// NewFactory creates a factory with the default provider registry.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, builders: cloneDefaultBuilders()}
}

// Register allows tests or callers to override provider builders.
func (f *Factory) Register(name string, builder Builder) {
	if f.builders == nil {
		f.builders = make(map[string]Builder)
	}
	f.builders[name] = builder
}

// Build instantiates the adapter selected by llm.provider.
func (f *Factory) Build(ctx context.Context) (Binding, error) {
	cfg := EnsureConfig(f.cfg)
	name := strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	builder, ok := f.builders[name]
	if !ok {
		return Binding{}, fmt.Errorf("llm provider %q unsupported", cfg.LLM.Provider)
	}
	binding, err := builder(ctx, cfg)
	if err != nil {
		return Binding{}, fmt.Errorf("llm provider %q: %w", name, err)
	}
	if binding.Provider == "" {
		binding.Provider = name
	}
	if binding.Model == "" {
		binding.Model = cfg.LLM.Model
	}
	return binding, nil
}
