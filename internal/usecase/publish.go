package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"CitationWatch/internal/ports"
)

// Publisher writes wiki pages only when their text actually changes.
type Publisher struct {
	pages  ports.PageStore
	dryRun bool
	out    io.Writer
	logger *slog.Logger
}

// NewPublisher wires the page store. In dry-run mode pages are written to out instead of the wiki.
func NewPublisher(pages ports.PageStore, dryRun bool, out io.Writer, logger *slog.Logger) *Publisher {
	if out == nil {
		out = io.Discard
	}
	return &Publisher{pages: pages, dryRun: dryRun, out: out, logger: logger}
}

// DryRun reports whether saves are suppressed.
func (p *Publisher) DryRun() bool {
	return p.dryRun
}

// Publish replaces the text of title with text. It reports whether the page changed.
func (p *Publisher) Publish(ctx context.Context, title, text string) (bool, error) {
	return p.Update(ctx, title, func(string) (string, error) {
		return text, nil
	})
}

// Update reads title, derives the new text with build and saves it if it differs.
// The page must already exist; it is never created.
func (p *Publisher) Update(ctx context.Context, title string, build func(current string) (string, error)) (bool, error) {
	current, err := p.pages.FetchPage(ctx, title)
	if err != nil {
		return false, err
	}

	next, err := build(current)
	if err != nil {
		return false, err
	}

	if next == current {
		p.info("page unchanged", "title", title)
		return false, nil
	}

	if p.dryRun {
		if _, err := fmt.Fprintf(p.out, "=== %s ===\n%s\n", title, next); err != nil {
			return false, fmt.Errorf("dry run output: %w", err)
		}
		p.info("dry run, page not saved", "title", title)
		return true, nil
	}

	summary := fmt.Sprintf("Updating %s with new content", title)
	if err := p.pages.SavePage(ctx, title, next, summary); err != nil {
		return false, err
	}
	p.info("page updated", "title", title)
	return true, nil
}

func (p *Publisher) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
