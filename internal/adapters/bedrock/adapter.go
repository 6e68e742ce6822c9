package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	anthropicadapter "github.com/ncecere/model_pricing_extractor/internal/adapters/anthropic"
	"github.com/ncecere/model_pricing_extractor/internal/models"
)

const (
	defaultAnthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens        = 4096
)

// Options controls how the Bedrock adapter is initialised.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	AnthropicVersion string
	DefaultMaxTokens int32
}

type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type identityCaller interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Adapter runs Anthropic models hosted on Amazon Bedrock with a forced tool call.
type Adapter struct {
	client    modelInvoker
	stsClient identityCaller
	opts      Options
}

// New creates a Bedrock adapter using the provided credentials/region.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Region == "" {
		return nil, errors.New("bedrock region required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		loadOpts = append(loadOpts, config.WithCredentialsProvider(staticProvider))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = opts.Region
	}

	return newAdapter(bedrockruntime.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg), opts), nil
}

func newAdapter(client modelInvoker, stsClient identityCaller, opts Options) *Adapter {
	if opts.AnthropicVersion == "" {
		opts.AnthropicVersion = defaultAnthropicVersion
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = defaultMaxTokens
	}
	return &Adapter{client: client, stsClient: stsClient, opts: opts}
}

// Structure invokes req.Model (a Bedrock model id) and returns the forced tool input.
func (a *Adapter) Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return models.StructuredResponse{}, errors.New("bedrock model id required")
	}
	body, err := a.buildAnthropicBody(req)
	if err != nil {
		return models.StructuredResponse{}, err
	}

	out, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return models.StructuredResponse{}, err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return models.StructuredResponse{}, fmt.Errorf("decode bedrock response: %w", err)
	}
	return parsed.structured(req.Model, req.SchemaName)
}

// HealthCheck verifies the AWS credentials resolve without paying for inference.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.stsClient == nil {
		return errors.New("bedrock sts client not initialised")
	}
	_, err := a.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	return err
}

func (a *Adapter) buildAnthropicBody(req models.StructuredRequest) ([]byte, error) {
	if strings.TrimSpace(req.SchemaName) == "" {
		return nil, errors.New("bedrock: schema name required")
	}
	inputSchema, err := anthropicadapter.ToolInputSchema(req.Schema)
	if err != nil {
		return nil, err
	}

	maxTokens := int32(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = a.opts.DefaultMaxTokens
	}

	body := anthropicRequest{
		AnthropicVersion: a.opts.AnthropicVersion,
		System:           strings.TrimSpace(req.System),
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: req.Prompt}},
		}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Tools: []anthropicTool{{
			Name:        req.SchemaName,
			Description: req.SchemaDescription,
			InputSchema: anthropicInputSchema{
				Type:       "object",
				Properties: inputSchema.Properties,
				Required:   inputSchema.Required,
			},
		}},
		ToolChoice: anthropicToolChoice{Type: "tool", Name: req.SchemaName},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode bedrock request: %w", err)
	}
	return encoded, nil
}

type anthropicRequest struct {
	AnthropicVersion string              `json:"anthropic_version"`
	System           string              `json:"system,omitempty"`
	Messages         []anthropicMessage  `json:"messages"`
	MaxTokens        int32               `json:"max_tokens"`
	Temperature      float64             `json:"temperature"`
	Tools            []anthropicTool     `json:"tools"`
	ToolChoice       anthropicToolChoice `json:"tool_choice"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicTool struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	InputSchema anthropicInputSchema `json:"input_schema"`
}

type anthropicInputSchema struct {
	Type       string   `json:"type"`
	Properties any      `json:"properties"`
	Required   []string `json:"required,omitempty"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

func (r anthropicResponse) structured(model, toolName string) (models.StructuredResponse, error) {
	out := models.StructuredResponse{
		ID:         r.ID,
		Model:      model,
		StopReason: r.StopReason,
		Usage: models.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}
	switch r.StopReason {
	case "max_tokens":
		return out, models.ErrTruncated
	case "refusal":
		return out, models.ErrRefused
	}
	for _, c := range r.Content {
		if c.Type != "tool_use" || c.Name != toolName {
			continue
		}
		if len(c.Input) == 0 || string(c.Input) == "null" {
			return out, models.ErrNoStructuredOutput
		}
		out.Content = c.Input
		return out, nil
	}
	return out, models.ErrNoStructuredOutput
}
