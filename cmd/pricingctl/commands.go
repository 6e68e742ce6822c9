package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/app"
	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/logging"
	"github.com/ncecere/model_pricing_extractor/internal/pricing"
	"github.com/ncecere/model_pricing_extractor/internal/report"
)

// errExtractionFailed is returned after a failure table has been printed.
var errExtractionFailed = errors.New("extraction failed")

type rootOptions struct {
	configFile string
	envFile    string
	output     string
	verbose    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "pricingctl",
		Short:         "Extract LLM token pricing from provider pricing pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to pricing.yaml")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(
		newPredefinedCmd(opts),
		newCustomCmd(opts),
		newTargetsCmd(opts),
		newSchemaCmd(opts),
		newConfigCmd(opts),
		newCheckCmd(opts),
	)
	return root
}

func (o *rootOptions) format() (report.Format, error) {
	return report.ParseFormat(o.output)
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(config.Options{ConfigFile: o.configFile, EnvFile: o.envFile})
}

// buildContainer wires the pipeline without redis; the CLI is never rate limited.
func (o *rootOptions) buildContainer(ctx context.Context) (*app.Container, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	// metrics have no scraper in a one-shot process
	cfg.Observability.EnableMetrics = false

	logOpts := logging.OptionsFromConfig(cfg.Log)
	logOpts.Console = o.stderr
	if !o.verbose {
		logOpts.Level = "error"
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}
	return app.NewContainer(ctx, cfg, logger, nil)
}

func (o *rootOptions) printTable(table pricing.Table) error {
	format, err := o.format()
	if err != nil {
		return err
	}
	if err := report.Render(o.stdout, table, format); err != nil {
		return err
	}
	if table.Failed() {
		return errExtractionFailed
	}
	return nil
}

func newPredefinedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predefined",
		Short: "Extract pricing for every configured target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.format(); err != nil {
				return err
			}
			container, err := opts.buildContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close(context.Background())
			defer func() { _ = container.Logger.Sync() }()

			return opts.printTable(container.Service.Predefined(cmd.Context()))
		},
	}
}

func newCustomCmd(opts *rootOptions) *cobra.Command {
	var (
		pageURL    string
		provider   string
		modelNames []string
		modelsFile string
	)
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Extract pricing for the given models from one pricing page",
		Example: `  pricingctl custom --url https://www.anthropic.com/pricing --provider Anthropic \
    --model "Claude Sonnet 4.5" --model "Claude Haiku 4.5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.format(); err != nil {
				return err
			}
			modelsText, err := modelsInput(modelNames, modelsFile)
			if err != nil {
				return err
			}
			container, err := opts.buildContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close(context.Background())
			defer func() { _ = container.Logger.Sync() }()

			container.Logger.Debug("custom extraction", zap.String("url", pageURL), zap.String("provider", provider))
			return opts.printTable(container.Service.Custom(cmd.Context(), pageURL, modelsText, provider))
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "pricing page URL")
	cmd.Flags().StringVar(&provider, "provider", "", "provider name stamped on every row")
	cmd.Flags().StringArrayVarP(&modelNames, "model", "m", nil, "model name (repeatable)")
	cmd.Flags().StringVar(&modelsFile, "models-file", "", "file with one model name per line, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("model", "models-file")
	return cmd
}

// modelsInput returns the newline-separated model text the service parses.
func modelsInput(names []string, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read models from stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read models file: %w", err)
		}
		return string(data), nil
	default:
		return strings.Join(names, "\n"), nil
	}
}

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the predefined extraction targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.format()
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return report.RenderTargets(opts.stdout, cfg.Predefined.Targets, format)
		},
	}
}

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema the model output is constrained to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := pricing.Schema()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(opts.stdout, string(out))
			return err
		},
	}
}
