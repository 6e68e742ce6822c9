package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ncecere/model_pricing_extractor/internal/models"
)

// Options configure the native OpenAI adapter.
type Options struct {
	APIKey       string
	BaseURL      string
	Organization string
	Timeout      time.Duration
	Extra        []option.RequestOption
}

// Adapter wraps the official OpenAI SDK for native + compatible deployments.
type Adapter struct {
	client *openai.Client
}

// New creates an OpenAI adapter using the provided API key and optional base URL/organization.
func New(opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if strings.TrimSpace(opts.Organization) != "" {
		requestOpts = append(requestOpts, option.WithOrganization(strings.TrimSpace(opts.Organization)))
	}
	requestOpts = append(requestOpts, opts.Extra...)

	client := openai.NewClient(requestOpts...)
	return &Adapter{client: &client}, nil
}

// Structure runs a chat completion constrained by a strict JSON schema response format.
func (a *Adapter) Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, BuildStructuredParams(req))
	if err != nil {
		return models.StructuredResponse{}, err
	}
	return ConvertStructuredResponse(*resp)
}

// HealthCheck uses the Models API as a lightweight readiness probe.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	_, err := a.client.Models.List(ctx)
	return err
}

// BuildStructuredParams maps a StructuredRequest onto chat completion params.
// Azure deployments share the same wire format.
func BuildStructuredParams(req models.StructuredRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	schema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   req.SchemaName,
		Schema: req.Schema,
		Strict: openai.Bool(true),
	}
	if req.SchemaDescription != "" {
		schema.Description = openai.String(req.SchemaDescription)
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

// ConvertStructuredResponse extracts the schema payload from the first choice.
func ConvertStructuredResponse(resp openai.ChatCompletion) (models.StructuredResponse, error) {
	out := models.StructuredResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: models.Usage{
			PromptTokens:     int32(resp.Usage.PromptTokens),
			CompletionTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:      int32(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return out, models.ErrNoStructuredOutput
	}

	choice := resp.Choices[0]
	out.StopReason = choice.FinishReason
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return out, errors.Join(models.ErrRefused, errors.New(refusal))
	}
	if choice.FinishReason == "length" {
		return out, models.ErrTruncated
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return out, models.ErrNoStructuredOutput
	}
	out.Content = json.RawMessage(content)
	return out, nil
}
