package scanner

import (
	"context"
	"testing"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(StaticStrategy{})

	s, err := reg.Resolve("static")
	if err != nil {
		t.Fatalf("resolve static: %v", err)
	}
	if s.Name() != "static" {
		t.Fatalf("unexpected strategy: %s", s.Name())
	}

	if _, err := reg.Resolve("category"); err == nil {
		t.Fatalf("expected error for unregistered strategy")
	}
}

func TestStaticStrategy(t *testing.T) {
	t.Parallel()

	titles, err := StaticStrategy{}.Articles(context.Background(), Request{SourceName: "core", Titles: []string{"Vaccine", "MMR vaccine"}})
	if err != nil {
		t.Fatalf("articles: %v", err)
	}
	if len(titles) != 2 || titles[1] != "MMR vaccine" {
		t.Fatalf("unexpected titles: %v", titles)
	}

	if _, err := (StaticStrategy{}).Articles(context.Background(), Request{SourceName: "empty"}); err == nil {
		t.Fatalf("expected error for empty source")
	}
}

func TestRequestValues(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"category": " Vaccines | |Vaccine controversies"}}
	got := req.Values("category")
	if len(got) != 2 || got[0] != "Vaccines" || got[1] != "Vaccine controversies" {
		t.Fatalf("unexpected values: %q", got)
	}
	if req.Values("missing") != nil {
		t.Fatalf("expected nil for missing option")
	}
}
