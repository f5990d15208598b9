package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/ports"
)

// Column positions of the perennial sources table.
const (
	colType   = 0
	colName   = 1
	colURL    = 2
	colStatus = 4
)

// PageRenderer returns the parsed HTML of a wiki page.
type PageRenderer interface {
	RenderPage(ctx context.Context, title string) (string, error)
}

// PerennialSource reads curated domain statuses from the rendered perennial sources page.
type PerennialSource struct {
	pages  PageRenderer
	title  string
	logger *slog.Logger
}

var _ ports.ClassificationSource = (*PerennialSource)(nil)

// NewPerennialSource wires the page renderer with the page title to read.
func NewPerennialSource(pages PageRenderer, title string, logger *slog.Logger) *PerennialSource {
	return &PerennialSource{pages: pages, title: title, logger: logger}
}

// Classifications fetches the page and returns one classification per usable table row.
func (p *PerennialSource) Classifications(ctx context.Context) ([]domain.Classification, error) {
	html, err := p.pages.RenderPage(ctx, p.title)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	result, skipped := extractClassifications(doc)
	p.debug("perennial sources parsed", "page", p.title, "rows", len(result), "skipped", skipped)
	return result, nil
}

func extractClassifications(doc *goquery.Document) ([]domain.Classification, int) {
	var (
		collected []domain.Classification
		skipped   int
		seen      = map[string]struct{}{}
	)

	doc.Find("table.wikitable tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() <= colStatus {
			return
		}

		c, ok := parseRow(cells)
		if !ok {
			skipped++
			return
		}
		if _, dup := seen[c.Domain]; dup {
			return
		}
		seen[c.Domain] = struct{}{}
		collected = append(collected, c)
	})

	return collected, skipped
}

func parseRow(cells *goquery.Selection) (domain.Classification, bool) {
	name, ok := registrableFromCell(cells.Eq(colURL))
	if !ok {
		return domain.Classification{}, false
	}

	status, err := domain.ParseStatusLabel(statusText(cells.Eq(colStatus)))
	if err != nil {
		return domain.Classification{}, false
	}

	sourceType := strings.ToLower(cellText(cells.Eq(colType)))
	if sourceType == "gov" {
		sourceType = "government"
	}

	return domain.Classification{
		Domain: name,
		Name:   cellText(cells.Eq(colName)),
		Type:   sourceType,
		Status: status,
	}, true
}

// registrableFromCell prefers the first external link and falls back to the cell text.
func registrableFromCell(cell *goquery.Selection) (string, bool) {
	if href, ok := cell.Find("a.external").First().Attr("href"); ok {
		if name, ok := domain.RegistrableDomain(href); ok {
			return name, true
		}
	}
	text := strings.Fields(cellText(cell))
	if len(text) == 0 {
		return "", false
	}
	return domain.RegistrableDomain(text[0])
}

// statusText joins the visible text with image alt and title attributes, which is where
// rating templates usually carry their label.
func statusText(cell *goquery.Selection) string {
	parts := []string{cellText(cell)}
	cell.Find("img, span[title], abbr[title]").Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok {
			parts = append(parts, alt)
		}
		if title, ok := s.Attr("title"); ok {
			parts = append(parts, title)
		}
	})
	return strings.Join(parts, " ")
}

func cellText(cell *goquery.Selection) string {
	clone := cell.Clone()
	clone.Find("sup.reference").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

func (p *PerennialSource) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
