package parser

import (
	"context"
	"testing"

	"CitationWatch/internal/config"
	"CitationWatch/internal/scanner"
)

func TestStrategySourceMergesSources(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(scanner.StaticStrategy{})

	src := NewStrategySource(reg, []config.SourceConfig{
		{Name: "core", Strategy: "static", Titles: []string{"Vaccine", "MMR vaccine"}},
		{Name: "extra", Strategy: "static", Titles: []string{"MMR vaccine", "Polio vaccine"}},
	}, nil)

	titles, err := src.Articles(context.Background())
	if err != nil {
		t.Fatalf("articles: %v", err)
	}
	want := []string{"Vaccine", "MMR vaccine", "Polio vaccine"}
	if len(titles) != len(want) {
		t.Fatalf("unexpected titles: %v", titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("title %d: got %s, want %s", i, titles[i], want[i])
		}
	}
}

func TestStrategySourceUnknownStrategy(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(scanner.NewRegistry(), []config.SourceConfig{{Name: "x", Strategy: "category"}}, nil)
	if _, err := src.Articles(context.Background()); err == nil {
		t.Fatalf("expected error for unregistered strategy")
	}
}
