package azureopenai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	native "github.com/ncecere/model_pricing_extractor/internal/adapters/openai"
	"github.com/ncecere/model_pricing_extractor/internal/models"
)

const defaultAPIVersion = "2024-10-21"

// Adapter wraps the official OpenAI Go SDK configured for Azure endpoints.
// Model names in requests are deployment names.
type Adapter struct {
	client     *openai.Client
	httpClient *http.Client
	endpoint   string
	apiKey     string
	apiVersion string
}

type Options struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	Extra      []option.RequestOption
}

// New creates a new Azure adapter using the provided endpoint, api key, and api version.
func New(opts Options) (*Adapter, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("azure openai endpoint required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("azure openai api key required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	httpClient := &http.Client{Timeout: opts.Timeout}

	options := []option.RequestOption{
		azure.WithEndpoint(endpoint, opts.APIVersion),
		azure.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	options = append(options, opts.Extra...)

	client := openai.NewClient(options...)

	return &Adapter{
		client:     &client,
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     opts.APIKey,
		apiVersion: opts.APIVersion,
	}, nil
}

// Structure performs a json_schema constrained chat completion against a deployment.
func (a *Adapter) Structure(ctx context.Context, req models.StructuredRequest) (models.StructuredResponse, error) {
	resp, err := a.client.Chat.Completions.New(ctx, native.BuildStructuredParams(req))
	if err != nil {
		return models.StructuredResponse{}, err
	}
	return native.ConvertStructuredResponse(*resp)
}

// HealthCheck makes a lightweight GET request against the Azure deployments endpoint.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/openai/deployments?api-version=%s", a.endpoint, url.QueryEscape(a.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("azure health check status %d", resp.StatusCode)
	}
	return nil
}
