// Package crawler harvests the external links cited by the tracked articles into the fact store.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
	"CitationWatch/internal/wikilink"
)

// Stats summarises one crawl.
type Stats struct {
	Articles  int
	Citations int
	Skipped   int
	Failed    int
}

// Crawler walks the article set and records every resolvable external link under one batch.
type Crawler struct {
	articles ports.ArticleSource
	links    ports.LinkSource
	store    ports.CitationWriter
	wikiBase string
	logger   *slog.Logger
	now      func() time.Time
}

// New wires the crawler. wikiBase is used to build the article URL stored with each citation.
func New(articles ports.ArticleSource, links ports.LinkSource, store ports.CitationWriter, wikiBase string, logger *slog.Logger) *Crawler {
	return &Crawler{
		articles: articles,
		links:    links,
		store:    store,
		wikiBase: wikiBase,
		logger:   logger,
		now:      time.Now,
	}
}

// Crawl harvests all articles and returns the batch the citations were written under.
// A failure to list one article's links is logged and counted; storage errors abort.
func (c *Crawler) Crawl(ctx context.Context) (domain.Batch, Stats, error) {
	var stats Stats
	batch := domain.NewBatch(c.now())

	titles, err := c.articles.Articles(ctx)
	if err != nil {
		return 0, stats, fmt.Errorf("resolve articles: %w", err)
	}

	domainIDs := map[string]int64{}
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return 0, stats, err
		}

		links, err := c.links.ExternalLinks(ctx, title)
		if err != nil {
			stats.Failed++
			c.warn("skip article", "title", title, "error", err)
			continue
		}
		stats.Articles++

		articleURL := wikilink.ArticleURL(c.wikiBase, title)
		for _, raw := range links {
			link := domain.StripArchive(raw)
			name, ok := domain.RegistrableDomain(link)
			if !ok {
				stats.Skipped++
				continue
			}

			id, cached := domainIDs[name]
			if !cached {
				id, err = c.store.EnsureDomain(ctx, name)
				if err != nil {
					return 0, stats, fmt.Errorf("ensure domain %s: %w", name, err)
				}
				domainIDs[name] = id
			}

			citation := domain.Citation{URL: link, ArticleURL: articleURL, Domain: name, Batch: batch}
			if err := c.store.UpsertCitation(ctx, citation, id); err != nil {
				return 0, stats, fmt.Errorf("upsert citation %s: %w", link, err)
			}
			stats.Citations++
		}
		c.debug("article harvested", "title", title, "links", len(links))
	}

	c.info("crawl finished", "batch", int64(batch), "articles", stats.Articles, "citations", stats.Citations,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return batch, stats, nil
}

func (c *Crawler) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Crawler) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Crawler) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
