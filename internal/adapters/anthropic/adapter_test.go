package anthropic

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

func testRequest() models.StructuredRequest {
	return models.StructuredRequest{
		Model:             "claude-sonnet-4-5",
		System:            "You are an extraction engine.",
		Prompt:            "extract pricing",
		SchemaName:        "pricing_list",
		SchemaDescription: "Per-model token pricing",
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"pricinglist"},
			"properties": map[string]any{
				"pricinglist": map[string]any{"type": "array"},
			},
		},
	}
}

func messageBody(stopReason string, content ...map[string]any) string {
	body, _ := json.Marshal(map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-sonnet-4-5",
		"content":       content,
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 900, "output_tokens": 60},
	})
	return string(body)
}

func toolUse(name string, input any) map[string]any {
	return map[string]any{"type": "tool_use", "id": "toolu_1", "name": name, "input": input}
}

func newServer(t *testing.T, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/v1/messages" || r.Header.Get("X-Api-Key") != "sk-ant-test" {
			w.WriteHeader(http.StatusNotFound)
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

func TestStructureForcesTool(t *testing.T) {
	var captured map[string]any
	body := messageBody("tool_use", toolUse("pricing_list", map[string]any{
		"pricinglist": []any{map[string]any{"model_name": "Claude Sonnet", "cost_per_1M_input_token": 3, "cost_per_1M_output_token": 15}},
	}))
	ts := newServer(t, body, &captured)

	adapter, err := New(Options{APIKey: "sk-ant-test", BaseURL: ts.URL})
	require.NoError(t, err)

	resp, err := adapter.Structure(context.Background(), testRequest())
	require.NoError(t, err)
	require.JSONEq(t, `{"pricinglist":[{"model_name":"Claude Sonnet","cost_per_1M_input_token":3,"cost_per_1M_output_token":15}]}`, string(resp.Content))
	require.Equal(t, int32(960), resp.Usage.TotalTokens)
	require.Equal(t, "tool_use", resp.StopReason)

	require.Equal(t, "claude-sonnet-4-5", captured["model"])
	require.EqualValues(t, defaultMaxTokens, captured["max_tokens"])
	require.EqualValues(t, 0, captured["temperature"])
	require.Equal(t, map[string]any{"type": "tool", "name": "pricing_list"}, captured["tool_choice"])

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	require.Equal(t, "pricing_list", tool["name"])
	schema := tool["input_schema"].(map[string]any)
	require.Equal(t, "object", schema["type"])
	require.Equal(t, []any{"pricinglist"}, schema["required"])

	system := captured["system"].([]any)
	require.Equal(t, "You are an extraction engine.", system[0].(map[string]any)["text"])
}

func TestStructureFailureModes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "truncated", body: messageBody("max_tokens", toolUse("pricing_list", map[string]any{})), want: models.ErrTruncated},
		{name: "refusal", body: messageBody("refusal", map[string]any{"type": "text", "text": "no"}), want: models.ErrRefused},
		{name: "text only", body: messageBody("end_turn", map[string]any{"type": "text", "text": "GPT-4o is $2.50"}), want: models.ErrNoStructuredOutput},
		{name: "other tool", body: messageBody("tool_use", toolUse("search", map[string]any{"q": "x"})), want: models.ErrNoStructuredOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newServer(t, tt.body, nil)
			adapter, err := New(Options{APIKey: "sk-ant-test", BaseURL: ts.URL})
			require.NoError(t, err)

			_, err = adapter.Structure(context.Background(), testRequest())
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestToolInputSchema(t *testing.T) {
	schema, err := ToolInputSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "string"}},
		"required":   []any{"a"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, schema.Required)
	require.NotNil(t, schema.Properties)

	_, err = ToolInputSchema(map[string]any{"type": "array"})
	require.Error(t, err)

	_, err = ToolInputSchema(map[string]any{"type": "object", "required": []any{1}})
	require.Error(t, err)

	_, err = ToolInputSchema(nil)
	require.Error(t, err)
}

func TestBuildMessageParamsRequiresSchemaName(t *testing.T) {
	req := testRequest()
	req.SchemaName = ""
	_, err := BuildMessageParams(req, 1024)
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" || r.Header.Get("anthropic-version") != defaultVersion {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	adapter, err := New(Options{APIKey: "sk-ant-test", BaseURL: ts.URL})
	require.NoError(t, err)
	require.NoError(t, adapter.HealthCheck(context.Background()))
}
