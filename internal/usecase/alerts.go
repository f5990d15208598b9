package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"CitationWatch/internal/alerts"
	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
)

// AlertDeps wires the collaborators of the alerts stage.
type AlertDeps struct {
	Store     ports.AlertStore
	Publisher *Publisher
	Notifier  ports.Notifier
	Formatter alerts.Formatter
	Page      string
	Threshold int
	Logger    *slog.Logger
}

// AlertService selects new alert candidates, merges them into the alerts feed and
// records which candidates were announced.
type AlertService struct {
	store     ports.AlertStore
	publisher *Publisher
	notifier  ports.Notifier
	formatter alerts.Formatter
	page      string
	threshold int
	logger    *slog.Logger
}

// AlertResult describes one alerts stage.
type AlertResult struct {
	Blocks  []alerts.Block
	Changed bool
	Stats   alerts.Stats
	// MarkErr joins the notification updates that failed. It never aborts the stage.
	MarkErr error
}

// NewAlertService constructs the alerts stage.
func NewAlertService(deps AlertDeps) *AlertService {
	return &AlertService{
		store:     deps.Store,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		formatter: deps.Formatter,
		page:      deps.Page,
		threshold: deps.Threshold,
		logger:    deps.Logger,
	}
}

type candidates struct {
	frequent []domain.FrequentDomain
	flagged  []domain.FlaggedCitation
}

// Run publishes alerts for batch.
func (s *AlertService) Run(ctx context.Context, batch domain.Batch) (AlertResult, error) {
	var result AlertResult

	found, err := s.candidates(ctx, batch)
	if err != nil {
		return result, err
	}

	result.Blocks, found, err = s.format(found)
	if err != nil {
		return result, err
	}

	result.Changed, err = s.publisher.Update(ctx, s.page, func(current string) (string, error) {
		merged, stats, err := alerts.Merge(current, result.Blocks)
		if err != nil {
			return "", fmt.Errorf("merge alerts into %s: %w", s.page, err)
		}
		result.Stats = stats
		return merged, nil
	})
	if err != nil {
		return result, fmt.Errorf("publish alerts: %w", err)
	}
	if result.Stats.Orphans > 0 {
		s.warn("alert feed has field lines outside any block", "page", s.page, "orphans", result.Stats.Orphans)
	}

	if s.publisher.DryRun() {
		s.info("dry run, notification state untouched", "alerts", len(result.Blocks))
		return result, nil
	}

	result.MarkErr = s.mark(ctx, found)
	if result.MarkErr != nil {
		s.warn("notification state partially updated", "error", result.MarkErr)
	}

	s.mirror(ctx, result.Blocks)
	return result, nil
}

func (s *AlertService) candidates(ctx context.Context, batch domain.Batch) (candidates, error) {
	frequent, err := s.store.FrequentDomainAlerts(ctx, batch, s.threshold)
	if err != nil {
		return candidates{}, fmt.Errorf("frequent domain alerts: %w", err)
	}
	flagged, err := s.store.FlaggedCitationAlerts(ctx, batch)
	if err != nil {
		return candidates{}, fmt.Errorf("flagged citation alerts: %w", err)
	}
	s.debug("alert candidates", "batch", int64(batch), "frequent", len(frequent), "flagged", len(flagged))
	return candidates{frequent: frequent, flagged: flagged}, nil
}

// format numbers each kind from 1; the merger renumbers the whole feed afterwards.
// Flagged candidates without an article title are skipped and left out of the
// returned candidates so they stay unnotified.
func (s *AlertService) format(found candidates) ([]alerts.Block, candidates, error) {
	blocks := make([]alerts.Block, 0, len(found.frequent)+len(found.flagged))
	for i, fd := range found.frequent {
		blocks = append(blocks, s.formatter.FormatFrequent(i+1, fd))
	}

	kept := candidates{frequent: found.frequent}
	for _, fc := range found.flagged {
		block, err := s.formatter.FormatFlagged(len(kept.flagged)+1, fc)
		if errors.Is(err, alerts.ErrNoArticleTitle) {
			s.warn("flagged citation skipped", "domain", fc.Domain, "article_url", fc.ArticleURL)
			continue
		}
		if err != nil {
			return nil, candidates{}, err
		}
		blocks = append(blocks, block)
		kept.flagged = append(kept.flagged, fc)
	}
	return blocks, kept, nil
}

func (s *AlertService) mark(ctx context.Context, found candidates) error {
	var errs []error
	for _, fd := range found.frequent {
		if err := s.store.MarkDomainNotified(ctx, fd.DomainID); err != nil {
			errs = append(errs, fmt.Errorf("mark domain %s: %w", fd.Domain, err))
		}
	}
	for _, fc := range found.flagged {
		if err := s.store.MarkCitationNotified(ctx, fc.DomainID, fc.ArticleURL); err != nil {
			errs = append(errs, fmt.Errorf("mark %s on %s: %w", fc.Domain, fc.ArticleURL, err))
		}
	}
	return errors.Join(errs...)
}

func (s *AlertService) mirror(ctx context.Context, blocks []alerts.Block) {
	if s.notifier == nil || len(blocks) == 0 {
		return
	}
	if err := s.notifier.PublishAlerts(ctx, digest(s.page, blocks)); err != nil {
		s.warn("alert mirror failed", "error", err)
	}
}

func digest(page string, blocks []alerts.Block) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new alert(s) on %s\n", len(blocks), page)
	for _, block := range blocks {
		fields, err := alerts.ParseBlock(block)
		if err != nil {
			continue
		}
		name, detail, article, ok := fields.Subject()
		switch {
		case !ok:
			fmt.Fprintf(&b, "- %s: %s\n", fields.Type, fields.Msg)
		case article == "":
			fmt.Fprintf(&b, "- %s: %s cited %s times\n", fields.Type, name, detail)
		default:
			fmt.Fprintf(&b, "- %s: %s (%s) on %s\n", fields.Type, name, detail, article)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *AlertService) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *AlertService) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *AlertService) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
