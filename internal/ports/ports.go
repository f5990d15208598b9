package ports

import (
	"context"
	"time"

	"CitationWatch/internal/domain"
)

// ReportStore answers the aggregate queries behind the metrics report.
type ReportStore interface {
	LatestBatch(ctx context.Context) (domain.Batch, error)
	CountArticles(ctx context.Context, batch domain.Batch) (int64, error)
	CountDomains(ctx context.Context, batch domain.Batch) (int64, error)
	CountTiers(ctx context.Context, batch domain.Batch) (domain.TierCounts, error)
	FrequentDomains(ctx context.Context, batch domain.Batch, threshold int) ([]domain.FrequentDomain, error)
	FlaggedDomains(ctx context.Context, batch domain.Batch) ([]domain.FlaggedDomain, error)
}

// AlertStore lists alert candidates that were not announced yet and records announcements.
type AlertStore interface {
	FrequentDomainAlerts(ctx context.Context, batch domain.Batch, threshold int) ([]domain.FrequentDomain, error)
	FlaggedCitationAlerts(ctx context.Context, batch domain.Batch) ([]domain.FlaggedCitation, error)
	MarkDomainNotified(ctx context.Context, domainID int64) error
	MarkCitationNotified(ctx context.Context, domainID int64, articleURL string) error
}

// FactStore is the full read side used by a run.
type FactStore interface {
	ReportStore
	AlertStore
}

// CitationWriter persists harvested citations.
type CitationWriter interface {
	EnsureDomain(ctx context.Context, name string) (int64, error)
	UpsertCitation(ctx context.Context, c domain.Citation, domainID int64) error
}

// ClassificationWriter records curated domain statuses.
type ClassificationWriter interface {
	UpsertClassification(ctx context.Context, c domain.Classification) error
}

// PageStore reads and writes wiki page text.
type PageStore interface {
	FetchPage(ctx context.Context, title string) (string, error)
	SavePage(ctx context.Context, title, text, summary string) error
}

// LinkSource lists the external links cited by an article.
type LinkSource interface {
	ExternalLinks(ctx context.Context, title string) ([]string, error)
}

// ArticleSource resolves the set of article titles in scope for a crawl.
type ArticleSource interface {
	Articles(ctx context.Context) ([]string, error)
}

// ClassificationSource yields curated statuses from the perennial sources list.
type ClassificationSource interface {
	Classifications(ctx context.Context) ([]domain.Classification, error)
}

// Notifier mirrors newly published alerts to a chat channel.
type Notifier interface {
	PublishAlerts(ctx context.Context, text string) error
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
