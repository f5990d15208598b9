package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"CitationWatch/internal/app"
	"CitationWatch/internal/config"
	"CitationWatch/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "citationwatch",
		Short:         "Track citation reliability on a set of wiki articles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (defaults to $CITATIONWATCH_CONFIG)")

	stage := func(use, short string, run func(*app.Application, context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), configPath, use, run)
			},
		}
	}

	root.AddCommand(
		stage("run", "Crawl (if enabled), publish the report and publish new alerts", (*app.Application).Run),
		stage("crawl", "Harvest external links of the tracked articles", (*app.Application).Crawl),
		stage("report", "Republish the metrics report for the latest batch", (*app.Application).Report),
		stage("alerts", "Publish new alerts for the latest batch", (*app.Application).Alerts),
		stage("perennial", "Import curated statuses from the perennial sources page", (*app.Application).Perennial),
		stage("migrate", "Create the database schema", (*app.Application).Migrate),
		stage("daemon", "Run on the configured interval until interrupted", (*app.Application).Daemon),
	)
	return root
}

func execute(ctx context.Context, configPath, command string, run func(*app.Application, context.Context) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logging.New("error").Error("load config", "error", err)
		return err
	}

	logger := logging.New(cfg.Logging.Level)
	application := app.New(cfg, logger)

	if err := run(application, ctx); err != nil {
		logger.Error("command failed", "command", command, "error", err)
		return err
	}
	return nil
}
