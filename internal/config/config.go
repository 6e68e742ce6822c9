package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the pricing extractor.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Crawler       CrawlerConfig       `mapstructure:"crawler"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Predefined    PredefinedConfig    `mapstructure:"predefined"`
	RateLimits    RateLimitConfig     `mapstructure:"rate_limits"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Health        HealthConfig        `mapstructure:"health"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

// CrawlerConfig configures the page crawling collaborator.
type CrawlerConfig struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxDepth        int           `mapstructure:"max_depth"`
	MaxBreadth      int           `mapstructure:"max_breadth"`
	Limit           int           `mapstructure:"limit"`
	ExtractDepth    string        `mapstructure:"extract_depth"`
	MaxContentChars int           `mapstructure:"max_content_chars"`
}

// LLMConfig configures the structured inference collaborator.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Azure       AzureConfig   `mapstructure:"azure"`
	AWS         AWSConfig     `mapstructure:"aws"`
}

type AzureConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// PredefinedConfig lists the targets run by the quick extraction action.
type PredefinedConfig struct {
	AllowPartial bool     `mapstructure:"allow_partial"`
	Targets      []Target `mapstructure:"targets"`
}

// Target is one (url, provider, models) triple.
type Target struct {
	Provider string   `mapstructure:"provider" json:"provider"`
	URL      string   `mapstructure:"url" json:"url"`
	Models   []string `mapstructure:"models" json:"models"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	ParallelRequests  int `mapstructure:"parallel_requests"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type ObservabilityConfig struct {
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// HealthConfig controls the background probe of the inference backend.
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("PRICING_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		v.SetConfigName("pricing")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecretFallbacks(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.applyVendorKey(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindSecretFallbacks lets conventional variable names stand in for the
// prefixed ones. The LLM key is resolved later by applyVendorKey.
func bindSecretFallbacks(v *viper.Viper) {
	_ = v.BindEnv("crawler.api_key", "PRICING_CRAWLER_API_KEY", "TAVILY_API_KEY")
	_ = v.BindEnv("llm.api_key", "PRICING_LLM_API_KEY")
	_ = v.BindEnv("llm.azure.endpoint", "PRICING_LLM_AZURE_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
	_ = v.BindEnv("llm.aws.region", "PRICING_LLM_AWS_REGION", "AWS_REGION")
}

// vendorKeyEnv names the conventional key variable of each inference backend.
// Bedrock resolves credentials through the AWS chain instead.
var vendorKeyEnv = map[string]string{
	"openai":            "OPENAI_API_KEY",
	"openai-compatible": "OPENAI_API_KEY",
	"azure":             "AZURE_OPENAI_API_KEY",
	"anthropic":         "ANTHROPIC_API_KEY",
}

// defaultModels is the model used when llm.model is left empty.
var defaultModels = map[string]string{
	"openai":            "gpt-4o-mini",
	"openai-compatible": "gpt-4o-mini",
	"azure":             "gpt-4o-mini",
	"anthropic":         "claude-sonnet-4-5",
	"bedrock":           "anthropic.claude-3-5-sonnet-20240620-v1:0",
}

// applyVendorKey fills an empty api key from the variable belonging to the
// selected provider only.
func (l *LLMConfig) applyVendorKey(getenv func(string) string) {
	if strings.TrimSpace(l.APIKey) != "" {
		return
	}
	if name, ok := vendorKeyEnv[normalizeProvider(l.Provider)]; ok {
		l.APIKey = getenv(name)
	}
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[normalizeProvider(provider)]
}

func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "openai"
	}
	return provider
}

// Validate normalizes values and rejects malformed settings. Missing API keys
// are not an error: the extractor reports them per request instead.
func (c *Config) Validate() error {
	var errs []error

	c.Crawler.Provider = strings.ToLower(strings.TrimSpace(c.Crawler.Provider))
	if c.Crawler.Provider == "" {
		c.Crawler.Provider = "tavily"
	}
	if c.Crawler.Provider != "tavily" {
		errs = append(errs, fmt.Errorf("crawler.provider %q unsupported", c.Crawler.Provider))
	}
	c.Crawler.APIKey = strings.TrimSpace(c.Crawler.APIKey)
	if c.Crawler.Timeout <= 0 {
		c.Crawler.Timeout = 60 * time.Second
	}
	if c.Crawler.MaxDepth < 0 || c.Crawler.MaxBreadth < 0 || c.Crawler.Limit < 0 {
		errs = append(errs, fmt.Errorf("crawler.max_depth, max_breadth and limit must be >= 0"))
	}
	switch c.Crawler.ExtractDepth {
	case "":
		c.Crawler.ExtractDepth = "basic"
	case "basic", "advanced":
	default:
		errs = append(errs, fmt.Errorf("crawler.extract_depth must be basic or advanced"))
	}
	if c.Crawler.MaxContentChars < 0 {
		errs = append(errs, fmt.Errorf("crawler.max_content_chars must be >= 0"))
	}

	c.LLM.Provider = normalizeProvider(c.LLM.Provider)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel(c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model must be provided for provider %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2"))
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 120 * time.Second
	}

	for i := range c.Predefined.Targets {
		target := &c.Predefined.Targets[i]
		target.Provider = strings.TrimSpace(target.Provider)
		target.URL = strings.TrimSpace(target.URL)
		target.Models = normalizeStringSlice(target.Models)
		if target.Provider == "" {
			errs = append(errs, fmt.Errorf("predefined.targets[%d].provider must be provided", i))
		}
		if u, err := url.Parse(target.URL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("predefined.targets[%d].url must be an absolute URL", i))
		}
		if len(target.Models) == 0 {
			errs = append(errs, fmt.Errorf("predefined.targets[%d].models must list at least one model", i))
		}
	}

	if c.RateLimits.RequestsPerMinute < 0 || c.RateLimits.ParallelRequests < 0 {
		errs = append(errs, fmt.Errorf("rate_limits values must be >= 0"))
	}
	if c.Redis.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("redis.pool_size must be >= 0"))
	}
	if c.Server.BodyLimitMB <= 0 {
		c.Server.BodyLimitMB = 1
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error"))
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json"))
	}

	return errors.Join(errs...)
}

// CrawlerConfigured reports whether the crawling credential is present.
func (c *Config) CrawlerConfigured() bool {
	return c != nil && c.Crawler.APIKey != ""
}

// LLMConfigured reports whether the selected inference backend has credentials.
func (c *Config) LLMConfigured() bool {
	if c == nil {
		return false
	}
	switch c.LLM.Provider {
	case "bedrock":
		return strings.TrimSpace(c.LLM.AWS.Region) != ""
	case "azure":
		return c.LLM.APIKey != "" && strings.TrimSpace(c.LLM.Azure.Endpoint) != ""
	default:
		return c.LLM.APIKey != ""
	}
}

// DefaultTargets mirrors the reference deployment: OpenAI and Gemini pricing pages.
func DefaultTargets() []Target {
	return []Target{
		{
			Provider: "OpenAI",
			URL:      "https://openai.com/api/pricing/",
			Models:   []string{"GPT-4o", "GPT-4o mini", "GPT-4.1", "GPT-4.1 mini", "GPT-4.1 nano"},
		},
		{
			Provider: "Gemini",
			URL:      "https://ai.google.dev/gemini-api/docs/pricing",
			Models:   []string{"Gemini 2.0 Flash", "Gemini 2.0 Flash-lite"},
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 1)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")

	v.SetDefault("crawler.provider", "tavily")
	v.SetDefault("crawler.api_key", "")
	v.SetDefault("crawler.base_url", "https://api.tavily.com")
	v.SetDefault("crawler.timeout", "60s")
	v.SetDefault("crawler.max_depth", 1)
	v.SetDefault("crawler.max_breadth", 20)
	v.SetDefault("crawler.limit", 10)
	v.SetDefault("crawler.extract_depth", "basic")
	v.SetDefault("crawler.max_content_chars", 200_000)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.azure.endpoint", "")
	v.SetDefault("llm.azure.api_version", "2024-10-21")
	v.SetDefault("llm.aws.region", "")
	v.SetDefault("llm.aws.profile", "")
	v.SetDefault("llm.aws.access_key_id", "")
	v.SetDefault("llm.aws.secret_access_key", "")
	v.SetDefault("llm.aws.session_token", "")

	v.SetDefault("predefined.allow_partial", false)
	v.SetDefault("predefined.targets", targetsAsMaps(DefaultTargets()))

	v.SetDefault("rate_limits.requests_per_minute", 10)
	v.SetDefault("rate_limits.parallel_requests", 2)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")

	v.SetDefault("health.check_interval", "5m")
	v.SetDefault("health.timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
}

func targetsAsMaps(targets []Target) []map[string]any {
	out := make([]map[string]any, 0, len(targets))
	for _, t := range targets {
		out = append(out, map[string]any{
			"provider": t.Provider,
			"url":      t.URL,
			"models":   t.Models,
		})
	}
	return out
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
