// Package report builds and renders the metrics report for one citation batch.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
	"CitationWatch/internal/wikilink"
)

// DefaultFrequentThreshold is the citation count from which an unclassified domain is "frequent".
const DefaultFrequentThreshold = 10

// Aggregator runs the report queries against the fact store.
type Aggregator struct {
	store     ports.ReportStore
	threshold int
	logger    *slog.Logger
}

// NewAggregator wires the store; a non-positive threshold falls back to DefaultFrequentThreshold.
func NewAggregator(store ports.ReportStore, threshold int, logger *slog.Logger) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultFrequentThreshold
	}
	return &Aggregator{store: store, threshold: threshold, logger: logger}
}

// Build collects the snapshot for batch. Every figure is scoped to that batch only.
func (a *Aggregator) Build(ctx context.Context, batch domain.Batch) (domain.Snapshot, error) {
	snap := domain.Snapshot{Batch: batch}
	var err error

	if snap.Articles, err = a.store.CountArticles(ctx, batch); err != nil {
		return domain.Snapshot{}, fmt.Errorf("count articles: %w", err)
	}
	if snap.Domains, err = a.store.CountDomains(ctx, batch); err != nil {
		return domain.Snapshot{}, fmt.Errorf("count domains: %w", err)
	}
	if snap.Tiers, err = a.store.CountTiers(ctx, batch); err != nil {
		return domain.Snapshot{}, fmt.Errorf("count tiers: %w", err)
	}
	if snap.FrequentDomains, err = a.store.FrequentDomains(ctx, batch, a.threshold); err != nil {
		return domain.Snapshot{}, fmt.Errorf("frequent domains: %w", err)
	}
	if snap.FlaggedDomains, err = a.store.FlaggedDomains(ctx, batch); err != nil {
		return domain.Snapshot{}, fmt.Errorf("flagged domains: %w", err)
	}

	if a.logger != nil {
		a.logger.Debug("report snapshot built",
			"batch", int64(batch),
			"articles", snap.Articles,
			"domains", snap.Domains,
			"citations", snap.Tiers.Total,
			"frequent", len(snap.FrequentDomains),
			"flagged", len(snap.FlaggedDomains))
	}
	return snap, nil
}

// Render produces the report page wikitext. A flagged domain with an unmapped status is an error.
func Render(s domain.Snapshot) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, `
<onlyinclude>{{VSAFE metrics dashboard
| articles = %d
| domains = %d
| percent_reliable = %s
| percent_flagged = %s
| percent_unknown = %s
}}</onlyinclude>

==Frequent domain use==
{| class="wikitable sortable"
! Domain
! Count
! Appears on articles
|-
`, s.Articles, s.Domains, s.PercentReliable(), s.PercentFlagged(), s.PercentUnknown())

	for _, fd := range s.FrequentDomains {
		fmt.Fprintf(&b, `
| %s
| %d
| %s
|-
`, fd.Domain, fd.Count, hidden(fd.ArticleURLs))
	}

	b.WriteString(`
|}

==Flagged domain use==
{| class="wikitable sortable"
! Domain
! Status
! Appears on articles
|-
`)

	for _, fd := range s.FlaggedDomains {
		label, err := fd.Status.Label()
		if err != nil {
			return "", fmt.Errorf("render flagged domain %s: %w", fd.Domain, err)
		}
		fmt.Fprintf(&b, `
| %s
| {{vsrate|%s}}
| %s
|-
`, fd.Domain, label, hidden(fd.ArticleURLs))
	}

	b.WriteString(`
|}
`)
	return b.String(), nil
}

func hidden(articleURLs string) string {
	return "{{hidden|1=Article links|content=" + wikilink.Render(articleURLs) + "}}"
}
