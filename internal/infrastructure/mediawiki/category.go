package mediawiki

import (
	"context"
	"fmt"

	"CitationWatch/internal/scanner"
)

// CategoryStrategy resolves the article set from the members of a wiki category.
type CategoryStrategy struct {
	client *Client
}

var _ scanner.Strategy = (*CategoryStrategy)(nil)

// NewCategoryStrategy wires the API client.
func NewCategoryStrategy(client *Client) *CategoryStrategy {
	return &CategoryStrategy{client: client}
}

// Name identifies the strategy inside the registry.
func (s *CategoryStrategy) Name() string {
	return "category"
}

// Articles lists members of every category named in the request.
func (s *CategoryStrategy) Articles(ctx context.Context, req scanner.Request) ([]string, error) {
	categories := req.Values("category")
	if len(categories) == 0 {
		return nil, fmt.Errorf("source %s: no category configured", req.SourceName)
	}

	var titles []string
	for _, category := range categories {
		members, err := s.client.CategoryMembers(ctx, category)
		if err != nil {
			return nil, err
		}
		titles = append(titles, members...)
	}
	return titles, nil
}
