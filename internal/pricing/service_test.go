package pricing

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

type extractCall struct {
	url      string
	models   []string
	provider string
}

type stubExtraction struct {
	configured bool
	calls      []extractCall
	results    map[string][]Row
	errs       map[string]error
}

func (s *stubExtraction) Configured() bool { return s.configured }

func (s *stubExtraction) Extract(_ context.Context, url string, modelNames []string, provider string) ([]Row, error) {
	s.calls = append(s.calls, extractCall{url: url, models: modelNames, provider: provider})
	if err := s.errs[provider]; err != nil {
		return nil, err
	}
	return s.results[provider], nil
}

func row(provider, name, in, out string) Row {
	return Row{
		ModelPricing: ModelPricing{
			ModelName:             name,
			CostPer1MInputTokens:  decimal.RequireFromString(in),
			CostPer1MOutputTokens: decimal.RequireFromString(out),
		},
		Provider: provider,
	}
}

func predefinedConfig(allowPartial bool) config.PredefinedConfig {
	return config.PredefinedConfig{
		AllowPartial: allowPartial,
		Targets: []config.Target{
			{Provider: "OpenAI", URL: "https://openai.com/api/pricing/", Models: []string{"GPT-4o"}},
			{Provider: "Gemini", URL: "https://ai.google.dev/gemini-api/docs/pricing", Models: []string{"Gemini 2.5 Pro"}},
		},
	}
}

func TestPredefinedNotConfiguredMakesNoCalls(t *testing.T) {
	stub := &stubExtraction{}
	svc := NewService(stub, predefinedConfig(false), nil)

	table := svc.Predefined(context.Background())
	require.True(t, table.Failed())
	require.Equal(t, KindConfiguration, table.Failure.Kind)
	require.Equal(t, "API keys not configured. Please set up your keys first.", table.Failure.Message)
	require.Empty(t, stub.calls)

	var nilSvc *Service
	require.Equal(t, KindConfiguration, nilSvc.Predefined(context.Background()).Failure.Kind)
}

func TestPredefinedConcatenatesInTargetOrder(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		results: map[string][]Row{
			"OpenAI": {row("OpenAI", "GPT-4o", "2.5", "10"), row("OpenAI", "GPT-4o mini", "0.15", "0.6")},
			"Gemini": {row("Gemini", "Gemini 2.5 Pro", "1.25", "10")},
		},
	}
	svc := NewService(stub, predefinedConfig(false), nil)

	table := svc.Predefined(context.Background())
	require.False(t, table.Failed())
	require.Len(t, table.Rows, 3)
	require.Equal(t, []string{"OpenAI", "OpenAI", "Gemini"}, []string{table.Rows[0].Provider, table.Rows[1].Provider, table.Rows[2].Provider})
	require.Empty(t, table.Warnings)

	require.Len(t, stub.calls, 2)
	require.Equal(t, "https://openai.com/api/pricing/", stub.calls[0].url)
	require.Equal(t, []string{"Gemini 2.5 Pro"}, stub.calls[1].models)
}

func TestPredefinedOneFailureFailsEverything(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		results:    map[string][]Row{"Gemini": {row("Gemini", "Gemini 2.5 Pro", "1.25", "10")}},
		errs:       map[string]error{"OpenAI": extractionError(KindFetch, fmt.Errorf("timeout"))},
	}
	svc := NewService(stub, predefinedConfig(false), nil)

	table := svc.Predefined(context.Background())
	require.True(t, table.Failed())
	require.Equal(t, KindFetch, table.Failure.Kind)
	require.Equal(t, "Failed to extract pricing data. Check your API keys and internet connection.", table.Failure.Message)
	require.Empty(t, table.Rows)
	require.Len(t, stub.calls, 2)
}

func TestPredefinedPartialKeepsSuccessfulRows(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		results:    map[string][]Row{"Gemini": {row("Gemini", "Gemini 2.5 Pro", "1.25", "10")}},
		errs:       map[string]error{"OpenAI": extractionError(KindFetch, fmt.Errorf("timeout"))},
	}
	svc := NewService(stub, predefinedConfig(true), nil)

	table := svc.Predefined(context.Background())
	require.False(t, table.Failed())
	require.Len(t, table.Rows, 1)
	require.Equal(t, "Gemini", table.Rows[0].Provider)
	require.Equal(t, []string{"OpenAI: Failed to extract pricing: timeout"}, table.Warnings)
}

func TestPredefinedPartialAllFailed(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		errs: map[string]error{
			"OpenAI": extractionError(KindInference, fmt.Errorf("refused")),
			"Gemini": extractionError(KindFetch, fmt.Errorf("404")),
		},
	}
	svc := NewService(stub, predefinedConfig(true), nil)

	table := svc.Predefined(context.Background())
	require.True(t, table.Failed())
	require.Equal(t, KindInference, table.Failure.Kind)
}

func TestPredefinedEmptyResult(t *testing.T) {
	stub := &stubExtraction{configured: true}
	svc := NewService(stub, predefinedConfig(false), nil)

	table := svc.Predefined(context.Background())
	require.True(t, table.Failed())
	require.Equal(t, KindEmptyResult, table.Failure.Kind)
	require.Equal(t, "No pricing data found. Please check your API keys and internet connection.", table.Failure.Message)
}

func TestCustomValidation(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		models   string
		provider string
		kind     Kind
		message  string
	}{
		{name: "blank url", url: "  ", models: "A", provider: "P", kind: KindInputValidation, message: "Please fill in all fields"},
		{name: "empty models", url: "https://example.com", models: "", provider: "P", kind: KindInputValidation, message: "Please fill in all fields"},
		{name: "blank provider", url: "https://example.com", models: "A", provider: "", kind: KindInputValidation, message: "Please fill in all fields"},
		{name: "whitespace models", url: "https://example.com", models: " \n\t\n", provider: "P", kind: KindInputValidation, message: "Please enter at least one model name"},
		{name: "not a url", url: "example.com/pricing", models: "A", provider: "P", kind: KindInputValidation, message: "Please enter a valid http(s) URL"},
		{name: "ftp url", url: "ftp://example.com/pricing", models: "A", provider: "P", kind: KindInputValidation, message: "Please enter a valid http(s) URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExtraction{configured: true}
			svc := NewService(stub, config.PredefinedConfig{}, nil)

			table := svc.Custom(context.Background(), tt.url, tt.models, tt.provider)
			require.True(t, table.Failed())
			require.Equal(t, tt.kind, table.Failure.Kind)
			require.Equal(t, tt.message, table.Failure.Message)
			require.Empty(t, stub.calls)
		})
	}
}

func TestCustomNotConfiguredWinsOverValidation(t *testing.T) {
	stub := &stubExtraction{}
	svc := NewService(stub, config.PredefinedConfig{}, nil)

	table := svc.Custom(context.Background(), "", "", "")
	require.Equal(t, KindConfiguration, table.Failure.Kind)
	require.Empty(t, stub.calls)
}

func TestCustomPassesParsedModels(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		results:    map[string][]Row{"Anthropic": {row("Anthropic", "Claude Sonnet", "3", "15")}},
	}
	svc := NewService(stub, config.PredefinedConfig{}, nil)

	table := svc.Custom(context.Background(), " https://www.anthropic.com/pricing ", "A\nB\n\nC", " Anthropic ")
	require.False(t, table.Failed())
	require.Len(t, table.Rows, 1)
	require.Equal(t, []extractCall{{url: "https://www.anthropic.com/pricing", models: []string{"A", "B", "C"}, provider: "Anthropic"}}, stub.calls)
}

func TestCustomPropagatesExtractionFailure(t *testing.T) {
	stub := &stubExtraction{
		configured: true,
		errs:       map[string]error{"P": extractionError(KindFetch, fmt.Errorf("no such host"))},
	}
	svc := NewService(stub, config.PredefinedConfig{}, nil)

	table := svc.Custom(context.Background(), "https://example.invalid", "A", "P")
	require.Equal(t, KindFetch, table.Failure.Kind)
	require.Equal(t, "Failed to extract pricing: no such host", table.Failure.Message)
}

func TestCustomEmptyResult(t *testing.T) {
	stub := &stubExtraction{configured: true}
	svc := NewService(stub, config.PredefinedConfig{}, nil)

	table := svc.Custom(context.Background(), "https://example.com/pricing", "A", "P")
	require.Equal(t, KindEmptyResult, table.Failure.Kind)
	require.Equal(t, "No pricing data found for P models at https://example.com/pricing", table.Failure.Message)
}

func TestParseModelNames(t *testing.T) {
	require.Equal(t, []string{"A", "B", "C"}, ParseModelNames("A\nB\n\nC"))
	require.Equal(t, []string{"GPT-4o", "GPT-4o mini"}, ParseModelNames("  GPT-4o \r\nGPT-4o mini\r\n"))
	require.Empty(t, ParseModelNames(" \n \n"))
}

func TestTargetsReturnsCopy(t *testing.T) {
	svc := NewService(&stubExtraction{}, predefinedConfig(false), nil)
	targets := svc.Targets()
	targets[0].Provider = "mutated"
	require.Equal(t, "OpenAI", svc.Targets()[0].Provider)
}
