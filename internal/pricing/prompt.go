package pricing

import (
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = "You are an extraction engine. Answer only with data found in the supplied documentation."

const extractionTemplate = `You are an extraction engine.

From the following documentation content, extract pricing details ONLY for the following {{.Provider}} models:
{{- range .Models}}
- {{.}}
{{- end}}

For each model, extract:
- model_name
- cost_per_1M_input_token(USD)
- cost_per_1M_output_token(USD)

Documentation:
"""
{{.Document}}
"""
`

var promptTemplate = template.Must(template.New("extraction").Parse(extractionTemplate))

// PromptInput holds the template parameters. Document is the crawled page
// content and is only bound at render time.
type PromptInput struct {
	Provider string
	Models   []string
	Document string
}

// RenderPrompt fills the extraction instruction.
func RenderPrompt(in PromptInput) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render extraction prompt: %w", err)
	}
	return b.String(), nil
}
