package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/app"
	"github.com/ncecere/model_pricing_extractor/internal/config"
	"github.com/ncecere/model_pricing_extractor/internal/httpserver"
	"github.com/ncecere/model_pricing_extractor/internal/logging"
	"github.com/ncecere/model_pricing_extractor/internal/redisclient"
)

type serveOptions struct {
	configFile string
	envFile    string
	listenAddr string
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:           "pricingd",
		Short:         "Serve the pricing extraction API and web UI",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "", "path to pricing.yaml (default $PRICING_CONFIG_FILE or ./pricing.yaml)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "listen address, overrides server.listen_addr")
	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(config.Options{ConfigFile: opts.configFile, EnvFile: opts.envFile})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.listenAddr != "" {
		cfg.Server.ListenAddr = opts.listenAddr
	}

	logger, err := logging.New(logging.OptionsFromConfig(cfg.Log))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	redisClient, err := redisclient.Connect(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	container, err := app.NewContainer(ctx, cfg, logger, redisClient)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = container.Close(shutdownCtx)
	}()

	container.HealthMon.Start(ctx)

	server, err := httpserver.New(container)
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	logger.Info("listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.Bool("extraction_configured", container.Configured()),
		zap.Int("predefined_targets", len(cfg.Predefined.Targets)),
	)
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
