package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/infrastructure/mediawiki"
)

type savedPage struct {
	title, text, summary string
}

type fakePages struct {
	mu      sync.Mutex
	pages   map[string]string
	saved   []savedPage
	saveErr error
}

func newFakePages(pages map[string]string) *fakePages {
	return &fakePages{pages: pages}
}

func (f *fakePages) FetchPage(_ context.Context, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.pages[title]
	if !ok {
		return "", fmt.Errorf("fetch %s: %w", title, mediawiki.ErrPageMissing)
	}
	return text, nil
}

func (f *fakePages) SavePage(_ context.Context, title, text, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.pages[title] = text
	f.saved = append(f.saved, savedPage{title: title, text: text, summary: summary})
	return nil
}

type citationMark struct {
	domainID   int64
	articleURL string
}

type fakeFacts struct {
	batch    domain.Batch
	batchErr error

	articles, domains int64
	tiers             domain.TierCounts

	frequent []domain.FrequentDomain
	flagged  []domain.FlaggedCitation

	markErr        error
	markedDomains  []int64
	markedCitation []citationMark
	gotThreshold   int
}

func (f *fakeFacts) LatestBatch(context.Context) (domain.Batch, error) {
	return f.batch, f.batchErr
}

func (f *fakeFacts) CountArticles(context.Context, domain.Batch) (int64, error) { return f.articles, nil }
func (f *fakeFacts) CountDomains(context.Context, domain.Batch) (int64, error)  { return f.domains, nil }

func (f *fakeFacts) CountTiers(context.Context, domain.Batch) (domain.TierCounts, error) {
	return f.tiers, nil
}

func (f *fakeFacts) FrequentDomains(context.Context, domain.Batch, int) ([]domain.FrequentDomain, error) {
	return nil, nil
}

func (f *fakeFacts) FlaggedDomains(context.Context, domain.Batch) ([]domain.FlaggedDomain, error) {
	return nil, nil
}

func (f *fakeFacts) FrequentDomainAlerts(_ context.Context, _ domain.Batch, threshold int) ([]domain.FrequentDomain, error) {
	f.gotThreshold = threshold
	return f.frequent, nil
}

func (f *fakeFacts) FlaggedCitationAlerts(context.Context, domain.Batch) ([]domain.FlaggedCitation, error) {
	return f.flagged, nil
}

func (f *fakeFacts) MarkDomainNotified(_ context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedDomains = append(f.markedDomains, id)
	return nil
}

func (f *fakeFacts) MarkCitationNotified(_ context.Context, id int64, articleURL string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedCitation = append(f.markedCitation, citationMark{domainID: id, articleURL: articleURL})
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) PublishAlerts(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return f.err
}

var errBoom = errors.New("boom")
