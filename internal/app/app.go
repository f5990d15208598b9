package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"CitationWatch/internal/alerts"
	"CitationWatch/internal/config"
	"CitationWatch/internal/crawler"
	"CitationWatch/internal/infrastructure/mediawiki"
	"CitationWatch/internal/infrastructure/parser"
	"CitationWatch/internal/infrastructure/scheduler"
	"CitationWatch/internal/infrastructure/storage"
	"CitationWatch/internal/infrastructure/telegram"
	"CitationWatch/internal/logging"
	"CitationWatch/internal/ports"
	"CitationWatch/internal/report"
	"CitationWatch/internal/scanner"
	"CitationWatch/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	out      io.Writer
	wiki     *mediawiki.Client
	source   ports.ArticleSource
	notifier ports.Notifier
}

// New builds the application. Database handles are opened per run, not here.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	wiki := mediawiki.NewClient(mediawiki.Options{
		BaseURL:   cfg.Wiki.BaseURL,
		UserAgent: cfg.Wiki.UserAgent,
		Username:  cfg.Wiki.Username,
		Password:  cfg.Wiki.Password,
		Timeout:   cfg.Wiki.Timeout,
	}, baseLogger.With("component", "mediawiki"))

	registry := scanner.NewRegistry()
	registry.Register(scanner.StaticStrategy{})
	registry.Register(mediawiki.NewCategoryStrategy(wiki))

	source := parser.NewStrategySource(registry, cfg.Crawl.Sources, baseLogger.With("component", "source"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		out:      os.Stdout,
		wiki:     wiki,
		source:   source,
		notifier: notifier,
	}
}

// Run performs one full run: optional crawl, report and alerts.
func (a *Application) Run(ctx context.Context) error {
	return a.withPipeline(ctx, func(p *usecase.Pipeline) error {
		return p.Run(ctx)
	})
}

// Crawl harvests citations into a new batch.
func (a *Application) Crawl(ctx context.Context) error {
	return a.withPipeline(ctx, func(p *usecase.Pipeline) error {
		return p.Crawl(ctx)
	})
}

// Report republishes the metrics report.
func (a *Application) Report(ctx context.Context) error {
	return a.withPipeline(ctx, func(p *usecase.Pipeline) error {
		return p.Report(ctx)
	})
}

// Alerts publishes new alerts.
func (a *Application) Alerts(ctx context.Context) error {
	return a.withPipeline(ctx, func(p *usecase.Pipeline) error {
		return p.Alerts(ctx)
	})
}

// Perennial refreshes curated statuses from the perennial sources page.
func (a *Application) Perennial(ctx context.Context) error {
	return a.withPipeline(ctx, func(p *usecase.Pipeline) error {
		_, err := p.Perennial(ctx)
		return err
	})
}

// Migrate creates the schema if it does not exist.
func (a *Application) Migrate(ctx context.Context) error {
	repo, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer a.closeRepository(repo)

	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info("schema ready", "driver", a.cfg.Database.Driver)
	return nil
}

// Daemon runs on the configured interval until ctx is cancelled.
func (a *Application) Daemon(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.Run, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("daemon started", "interval", a.cfg.Scheduler.Interval.String())

	<-ctx.Done()
	if err := sched.Stop(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("daemon stopped")
	return nil
}

// withPipeline opens the fact store for a single run and closes it on every path.
func (a *Application) withPipeline(ctx context.Context, fn func(*usecase.Pipeline) error) error {
	repo, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer a.closeRepository(repo)

	return fn(a.pipeline(repo, a.logger.With("run_id", uuid.NewString())))
}

func (a *Application) pipeline(repo *storage.Repository, logger *slog.Logger) *usecase.Pipeline {
	publisher := usecase.NewPublisher(a.wiki, a.cfg.Wiki.DryRun, a.out, logger.With("component", "publisher"))

	alertService := usecase.NewAlertService(usecase.AlertDeps{
		Store:     repo,
		Publisher: publisher,
		Notifier:  a.notifier,
		Formatter: alerts.Formatter{ReportPage: a.cfg.Wiki.ReportPage, WikiBase: a.cfg.Wiki.BaseURL},
		Page:      a.cfg.Wiki.AlertsPage,
		Threshold: a.cfg.Alerts.FrequentThreshold,
		Logger:    logger.With("component", "alerts"),
	})

	return usecase.NewPipeline(usecase.PipelineDeps{
		Harvester:       crawler.New(a.source, a.wiki, repo, a.cfg.Wiki.BaseURL, logger.With("component", "crawler")),
		Store:           repo,
		Aggregator:      report.NewAggregator(repo, a.cfg.Alerts.FrequentThreshold, logger.With("component", "report")),
		Alerts:          alertService,
		Publisher:       publisher,
		Perennial:       parser.NewPerennialSource(a.wiki, a.cfg.Wiki.PerennialPage, logger.With("component", "perennial")),
		Classifications: repo,
		ReportPage:      a.cfg.Wiki.ReportPage,
		CrawlOnRun:      a.cfg.Crawl.Enabled,
		Logger:          logger.With("component", "pipeline"),
	})
}

func (a *Application) closeRepository(repo *storage.Repository) {
	if err := repo.Close(); err != nil {
		a.logger.Warn("close repository", "error", err)
	}
}
