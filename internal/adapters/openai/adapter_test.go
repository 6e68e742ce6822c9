package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_pricing_extractor/internal/models"
)

func structuredRequest() models.StructuredRequest {
	return models.StructuredRequest{
		Model:             "gpt-4o-mini",
		System:            "You are an extraction engine.",
		Prompt:            "extract pricing",
		SchemaName:        "pricing_list",
		SchemaDescription: "Per-model token pricing",
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"pricinglist"},
			"properties":           map[string]any{"pricinglist": map[string]any{"type": "array"}},
		},
		MaxTokens: 512,
	}
}

func completion(content, refusal, finish string) string {
	message := map[string]any{"role": "assistant", "content": content}
	if refusal != "" {
		message["refusal"] = refusal
		message["content"] = nil
	}
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1730000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message,
			"finish_reason": finish,
			"logprobs":      nil,
		}},
		"usage": map[string]any{"prompt_tokens": 1200, "completion_tokens": 80, "total_tokens": 1280},
	})
	return string(body)
}

func newTestServer(t *testing.T, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestStructureSendsStrictSchema(t *testing.T) {
	var captured map[string]any
	ts := newTestServer(t, completion(`{"pricinglist":[]}`, "", "stop"), &captured)

	adapter, err := New(Options{APIKey: "sk-test", BaseURL: ts.URL})
	require.NoError(t, err)

	resp, err := adapter.Structure(context.Background(), structuredRequest())
	require.NoError(t, err)
	require.JSONEq(t, `{"pricinglist":[]}`, string(resp.Content))
	require.Equal(t, "chatcmpl-test", resp.ID)
	require.Equal(t, "stop", resp.StopReason)
	require.Equal(t, int32(1200), resp.Usage.PromptTokens)
	require.Equal(t, int32(80), resp.Usage.CompletionTokens)

	require.Equal(t, "gpt-4o-mini", captured["model"])
	require.EqualValues(t, 0, captured["temperature"])
	require.EqualValues(t, 512, captured["max_completion_tokens"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	require.Equal(t, "system", messages[0].(map[string]any)["role"])
	require.Equal(t, "user", messages[1].(map[string]any)["role"])

	format := captured["response_format"].(map[string]any)
	require.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	require.Equal(t, "pricing_list", schema["name"])
	require.Equal(t, true, schema["strict"])
	require.Equal(t, false, schema["schema"].(map[string]any)["additionalProperties"])
}

func TestStructureFailureModes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "refusal", body: completion("", "I can't help with that.", "stop"), want: models.ErrRefused},
		{name: "truncated", body: completion(`{"pricinglist":[`, "", "length"), want: models.ErrTruncated},
		{name: "empty content", body: completion("", "", "stop"), want: models.ErrNoStructuredOutput},
		{name: "no choices", body: `{"id":"x","object":"chat.completion","model":"m","choices":[]}`, want: models.ErrNoStructuredOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.body, nil)
			adapter, err := New(Options{APIKey: "sk-test", BaseURL: ts.URL})
			require.NoError(t, err)

			_, err = adapter.Structure(context.Background(), structuredRequest())
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStructureSurfacesHTTPErrors(t *testing.T) {
	ts := newTestServer(t, "", nil)
	adapter, err := New(Options{APIKey: "sk-wrong", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = adapter.Structure(context.Background(), structuredRequest())
	require.Error(t, err)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestBuildStructuredParamsOmitsEmptySystem(t *testing.T) {
	req := structuredRequest()
	req.System = "  "
	req.MaxTokens = 0

	raw, err := json.Marshal(BuildStructuredParams(req))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded["messages"].([]any), 1)
	require.NotContains(t, decoded, "max_completion_tokens")
}
