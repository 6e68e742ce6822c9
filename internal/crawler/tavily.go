package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/models"
)

const defaultBaseURL = "https://api.tavily.com"

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 512

// Options configures the Tavily crawl client.
type Options struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	MaxDepth        int
	MaxBreadth      int
	Limit           int
	ExtractDepth    string
	MaxContentChars int
	HTTPClient      *http.Client
}

// OptionsFromConfig maps the crawler config section onto Options.
func OptionsFromConfig(cfg config.CrawlerConfig) Options {
	return Options{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		MaxDepth:        cfg.MaxDepth,
		MaxBreadth:      cfg.MaxBreadth,
		Limit:           cfg.Limit,
		ExtractDepth:    cfg.ExtractDepth,
		MaxContentChars: cfg.MaxContentChars,
	}
}

// TavilyClient crawls a site through the Tavily crawl endpoint and flattens the
// returned pages into a single document.
type TavilyClient struct {
	client  *http.Client
	baseURL string
	opts    Options
}

func NewTavily(opts Options) (*TavilyClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("tavily: api key required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.ExtractDepth == "" {
		opts.ExtractDepth = "basic"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &TavilyClient{
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
	}, nil
}

type crawlRequest struct {
	URL          string `json:"url"`
	MaxDepth     int    `json:"max_depth,omitempty"`
	MaxBreadth   int    `json:"max_breadth,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	ExtractDepth string `json:"extract_depth,omitempty"`
	Format       string `json:"format"`
}

// Crawl fetches url and every linked page Tavily returns for it. The result
// content is empty when Tavily found no readable text.
func (c *TavilyClient) Crawl(ctx context.Context, url string) (models.Page, error) {
	body, err := json.Marshal(crawlRequest{
		URL:          url,
		MaxDepth:     c.opts.MaxDepth,
		MaxBreadth:   c.opts.MaxBreadth,
		Limit:        c.opts.Limit,
		ExtractDepth: c.opts.ExtractDepth,
		Format:       "markdown",
	})
	if err != nil {
		return models.Page{}, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crawl", bytes.NewReader(body))
	if err != nil {
		return models.Page{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Page{}, fmt.Errorf("tavily: crawl %s: %w", url, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Page{}, fmt.Errorf("tavily: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return models.Page{}, decodeAPIError(resp.StatusCode, payload)
	}
	if !gjson.ValidBytes(payload) {
		return models.Page{}, errors.New("tavily: response is not valid json")
	}

	return c.flatten(url, payload), nil
}

func (c *TavilyClient) flatten(url string, payload []byte) models.Page {
	var (
		b       strings.Builder
		sources int
	)
	gjson.GetBytes(payload, "results").ForEach(func(_, result gjson.Result) bool {
		content := strings.TrimSpace(result.Get("raw_content").String())
		if content == "" {
			return true
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("URL: ")
		b.WriteString(result.Get("url").String())
		b.WriteString("\n")
		b.WriteString(content)
		sources++
		return true
	})

	return models.Page{
		URL:     url,
		Content: truncate(b.String(), c.opts.MaxContentChars),
		Sources: sources,
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func decodeAPIError(status int, payload []byte) error {
	var msg string
	if gjson.ValidBytes(payload) {
		for _, path := range []string{"detail.error", "detail", "error"} {
			if msg = gjson.GetBytes(payload, path).String(); msg != "" {
				break
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(payload))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("tavily: status %d: %s", status, msg)
}
