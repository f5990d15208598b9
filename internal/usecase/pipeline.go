package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"CitationWatch/internal/crawler"
	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
	"CitationWatch/internal/report"
)

// Harvester refreshes the fact store with a new batch of citations.
type Harvester interface {
	Crawl(ctx context.Context) (domain.Batch, crawler.Stats, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Harvester       Harvester
	Store           ports.ReportStore
	Aggregator      *report.Aggregator
	Alerts          *AlertService
	Publisher       *Publisher
	Perennial       ports.ClassificationSource
	Classifications ports.ClassificationWriter
	ReportPage      string
	CrawlOnRun      bool
	Logger          *slog.Logger
}

// Pipeline implements the crawl, report and alert workflow.
type Pipeline struct {
	harvester       Harvester
	store           ports.ReportStore
	aggregator      *report.Aggregator
	alerts          *AlertService
	publisher       *Publisher
	perennial       ports.ClassificationSource
	classifications ports.ClassificationWriter
	reportPage      string
	crawlOnRun      bool
	logger          *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		harvester:       deps.Harvester,
		store:           deps.Store,
		aggregator:      deps.Aggregator,
		alerts:          deps.Alerts,
		publisher:       deps.Publisher,
		perennial:       deps.Perennial,
		classifications: deps.Classifications,
		reportPage:      deps.ReportPage,
		crawlOnRun:      deps.CrawlOnRun,
		logger:          logger,
	}
}

// Run executes one full run: optional crawl, report, alerts. Any fatal error stops
// the run before later pages are published.
func (p *Pipeline) Run(ctx context.Context) error {
	log := p.runLogger("run")

	if p.crawlOnRun {
		if _, err := p.crawl(ctx, log); err != nil {
			return err
		}
	}

	batch, err := p.latestBatch(ctx)
	if err != nil {
		return err
	}
	if err := p.report(ctx, log, batch); err != nil {
		return err
	}
	if err := p.publishAlerts(ctx, log, batch); err != nil {
		return err
	}

	log.Info("run finished", "batch", int64(batch))
	return nil
}

// Crawl only harvests citations.
func (p *Pipeline) Crawl(ctx context.Context) error {
	_, err := p.crawl(ctx, p.runLogger("crawl"))
	return err
}

// Report only republishes the metrics report for the latest batch.
func (p *Pipeline) Report(ctx context.Context) error {
	batch, err := p.latestBatch(ctx)
	if err != nil {
		return err
	}
	return p.report(ctx, p.runLogger("report"), batch)
}

// Alerts only publishes alerts for the latest batch.
func (p *Pipeline) Alerts(ctx context.Context) error {
	batch, err := p.latestBatch(ctx)
	if err != nil {
		return err
	}
	return p.publishAlerts(ctx, p.runLogger("alerts"), batch)
}

// Perennial refreshes curated domain statuses from the perennial sources page.
func (p *Pipeline) Perennial(ctx context.Context) (int, error) {
	log := p.runLogger("perennial")
	if p.perennial == nil || p.classifications == nil {
		return 0, fmt.Errorf("perennial ingestion is not configured")
	}

	rows, err := p.perennial.Classifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("read perennial sources: %w", err)
	}
	for _, c := range rows {
		if err := p.classifications.UpsertClassification(ctx, c); err != nil {
			return 0, fmt.Errorf("store classification %s: %w", c.Domain, err)
		}
	}

	log.Info("perennial sources stored", "domains", len(rows))
	return len(rows), nil
}

func (p *Pipeline) crawl(ctx context.Context, log *slog.Logger) (domain.Batch, error) {
	if p.harvester == nil {
		return 0, fmt.Errorf("crawler is not configured")
	}
	batch, stats, err := p.harvester.Crawl(ctx)
	if err != nil {
		return 0, fmt.Errorf("crawl: %w", err)
	}
	log.Info("crawl stored", "batch", int64(batch), "articles", stats.Articles, "citations", stats.Citations)
	return batch, nil
}

func (p *Pipeline) latestBatch(ctx context.Context) (domain.Batch, error) {
	batch, err := p.store.LatestBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest batch: %w", err)
	}
	return batch, nil
}

func (p *Pipeline) report(ctx context.Context, log *slog.Logger, batch domain.Batch) error {
	snapshot, err := p.aggregator.Build(ctx, batch)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	text, err := report.Render(snapshot)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	changed, err := p.publisher.Publish(ctx, p.reportPage, text)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	log.Info("report stage done", "batch", int64(batch), "changed", changed,
		"articles", snapshot.Articles, "domains", snapshot.Domains)
	return nil
}

func (p *Pipeline) publishAlerts(ctx context.Context, log *slog.Logger, batch domain.Batch) error {
	result, err := p.alerts.Run(ctx, batch)
	if err != nil {
		return err
	}
	log.Info("alerts stage done", "batch", int64(batch), "alerts", len(result.Blocks), "changed", result.Changed,
		"blocks_in_feed", result.Stats.Blocks)
	return nil
}

func (p *Pipeline) runLogger(stage string) *slog.Logger {
	return p.logger.With("stage", stage)
}
