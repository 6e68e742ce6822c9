package providers

import "context"

// Binding is the inference collaborator built from the llm config section.
type Binding struct {
	Provider   string
	Model      string
	Metadata   map[string]string
	Structurer Structurer
	Health     func(ctx context.Context) error
}

// Describe returns the binding metadata with provider and model filled in.
func (b Binding) Describe() map[string]string {
	out := make(map[string]string, len(b.Metadata)+2)
	for k, v := range b.Metadata {
		out[k] = v
	}
	out["provider"] = b.Provider
	out["model"] = b.Model
	return out
}
