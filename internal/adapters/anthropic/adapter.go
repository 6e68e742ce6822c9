package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ncecere/model_pricing_extractor/internal/models"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultVersion   = "2023-06-01"
	defaultMaxTokens = 4096
)

// Options configures the native Anthropic adapter.
type Options struct {
	APIKey           string
	BaseURL          string
	Version          string
	DefaultMaxTokens int64
	HTTPClient       *http.Client
}

// Adapter forces a single tool call whose input schema is the requested
// structure, which is how Anthropic models return schema-bound JSON.
type Adapter struct {
	client     anthropic.Client
	httpClient *http.Client
	baseURL    string
	opts       Options
}

func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("anthropic: api key required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(opts.Version) == "" {
		opts.Version = defaultVersion
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = defaultMaxTokens
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	client := anthropic.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(opts.HTTPClient),
		option.WithMaxRetries(0),
		option.WithBaseURL(baseURL),
		option.WithHeader("anthropic-version", opts.Version),
	)
	return &Adapter{
		client:     client,
		httpClient: opts.HTTPClient,
		baseURL:    baseURL,
		opts:       opts,
	}, nil
}

// Structure sends the prompt with a forced tool and returns the tool input.
func (a *Adapter) Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error) {
	params, err := BuildMessageParams(req, a.opts.DefaultMaxTokens)
	if err != nil {
		return models.StructuredResponse{}, err
	}
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return models.StructuredResponse{}, err
	}
	return convertMessage(*msg, req.SchemaName)
}

func (a *Adapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/models", a.baseURL), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", a.opts.APIKey)
	req.Header.Set("anthropic-version", a.opts.Version)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("anthropic health status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// BuildMessageParams maps a StructuredRequest onto a Messages API call that
// must answer through the tool named after the schema.
func BuildMessageParams(req models.StructuredRequest, defaultMax int64) (anthropic.MessageNewParams, error) {
	if strings.TrimSpace(req.SchemaName) == "" {
		return anthropic.MessageNewParams{}, errors.New("anthropic: schema name required")
	}
	inputSchema, err := ToolInputSchema(req.Schema)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMax
	}

	tool := anthropic.ToolParam{
		Name:        req.SchemaName,
		InputSchema: inputSchema,
	}
	if req.SchemaDescription != "" {
		tool.Description = anthropic.String(req.SchemaDescription)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
		Tools:       []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice:  anthropic.ToolChoiceParamOfTool(req.SchemaName),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params, nil
}

// ToolInputSchema splits a JSON schema object into the properties/required
// pair the tool definition expects.
func ToolInputSchema(schema map[string]any) (anthropic.ToolInputSchemaParam, error) {
	if schema == nil {
		return anthropic.ToolInputSchemaParam{}, errors.New("anthropic: schema required")
	}
	if typ, ok := schema["type"]; ok && typ != "object" {
		return anthropic.ToolInputSchemaParam{}, fmt.Errorf("anthropic: tool schema type must be object, got %v", typ)
	}
	out := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
	if out.Properties == nil {
		out.Properties = map[string]any{}
	}
	required, err := stringList(schema["required"])
	if err != nil {
		return anthropic.ToolInputSchemaParam{}, err
	}
	out.Required = required
	return out, nil
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("anthropic: required entries must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("anthropic: unexpected required list %T", v)
	}
}

func convertMessage(msg anthropic.Message, toolName string) (models.StructuredResponse, error) {
	out := models.StructuredResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: models.Usage{
			PromptTokens:     int32(msg.Usage.InputTokens),
			CompletionTokens: int32(msg.Usage.OutputTokens),
			TotalTokens:      int32(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	switch msg.StopReason {
	case "max_tokens":
		return out, models.ErrTruncated
	case "refusal":
		return out, models.ErrRefused
	}

	for _, block := range msg.Content {
		if block.Type != "tool_use" || block.Name != toolName {
			continue
		}
		raw, err := json.Marshal(block.Input)
		if err != nil {
			return out, fmt.Errorf("marshal tool_use input: %w", err)
		}
		if len(raw) == 0 || string(raw) == "null" {
			return out, models.ErrNoStructuredOutput
		}
		out.Content = raw
		return out, nil
	}
	return out, models.ErrNoStructuredOutput
}
