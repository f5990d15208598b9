package parser

import (
	"context"
	"fmt"
	"log/slog"

	"CitationWatch/internal/config"
	"CitationWatch/internal/ports"
	"CitationWatch/internal/scanner"
)

// StrategySource implements ArticleSource via registered article strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the strategy registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Articles iterates over configured sources and merges their titles, first occurrence wins.
func (s *StrategySource) Articles(ctx context.Context) ([]string, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("article registry is not configured")
	}

	s.debug("resolve articles", "sources", len(s.sources))

	var (
		aggregated []string
		seen       = map[string]struct{}{}
	)
	for _, source := range s.sources {
		s.debug("process source", "source", source.Name, "strategy", source.Strategy)
		strategy, err := s.registry.Resolve(source.Strategy)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}

		req := scanner.Request{
			SourceName: source.Name,
			Titles:     source.Titles,
			Options:    source.Options,
		}

		titles, err := strategy.Articles(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("resolve source %s: %w", source.Name, err)
		}

		for _, title := range titles {
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			aggregated = append(aggregated, title)
		}
		s.debug("source produced articles", "source", source.Name, "count", len(titles))
	}

	s.debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
