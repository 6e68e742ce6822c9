package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(redacted(*cfg), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.stdout, string(out))
			return err
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify credentials and probe the configured LLM backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := opts.buildContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close(context.Background())

			cfg := container.Config
			ok := printCheck(opts, "crawler key", cfg.CrawlerConfigured(), cfg.Crawler.Provider)
			ok = printCheck(opts, "llm credentials", cfg.LLMConfigured(), cfg.LLM.Provider) && ok
			if container.Binding == nil {
				return errExtractionFailed
			}

			container.HealthMon.CheckNow(cmd.Context())
			for name, st := range container.HealthMon.Snapshot() {
				ok = printCheck(opts, name+" probe", st.Healthy, st.Error) && ok
			}
			if !ok {
				return errExtractionFailed
			}
			return nil
		},
	}
}

func printCheck(opts *rootOptions, name string, healthy bool, detail string) bool {
	status := color.GreenString("ok")
	if !healthy {
		status = color.RedString("failed")
	}
	fmt.Fprintf(opts.stdout, "%-16s %s  %s\n", name, status, detail)
	return healthy
}

type configView struct {
	Server        config.ServerConfig        `json:"server"`
	Crawler       config.CrawlerConfig       `json:"crawler"`
	LLM           config.LLMConfig           `json:"llm"`
	Predefined    config.PredefinedConfig    `json:"predefined"`
	RateLimits    config.RateLimitConfig     `json:"rate_limits"`
	Redis         config.RedisConfig         `json:"redis"`
	Observability config.ObservabilityConfig `json:"observability"`
	Health        config.HealthConfig        `json:"health"`
	Log           config.LogConfig           `json:"log"`
}

func redacted(cfg config.Config) configView {
	cfg.Crawler.APIKey = mask(cfg.Crawler.APIKey)
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.LLM.AWS.SecretAccessKey = mask(cfg.LLM.AWS.SecretAccessKey)
	cfg.LLM.AWS.SessionToken = mask(cfg.LLM.AWS.SessionToken)
	cfg.Redis.URL = maskRedisURL(cfg.Redis.URL)
	return configView{
		Server:        cfg.Server,
		Crawler:       cfg.Crawler,
		LLM:           cfg.LLM,
		Predefined:    cfg.Predefined,
		RateLimits:    cfg.RateLimits,
		Redis:         cfg.Redis,
		Observability: cfg.Observability,
		Health:        cfg.Health,
		Log:           cfg.Log,
	}
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
