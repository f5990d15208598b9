package scanner

import (
	"context"
	"fmt"
	"strings"
)

// Request carries the configuration of one article source.
type Request struct {
	SourceName string
	Titles     []string
	Options    map[string]string
}

// Values splits a "|"-separated option into trimmed, non-empty values.
func (r Request) Values(key string) []string {
	raw, ok := r.Options[key]
	if !ok {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, "|") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Strategy resolves a set of article titles (static list, wiki category, etc.).
type Strategy interface {
	Name() string
	Articles(ctx context.Context, req Request) ([]string, error)
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("article strategy %s is not registered", name)
}

// StaticStrategy returns the titles listed in configuration.
type StaticStrategy struct{}

// Name identifies the strategy inside the registry.
func (StaticStrategy) Name() string {
	return "static"
}

// Articles returns req.Titles unchanged.
func (StaticStrategy) Articles(_ context.Context, req Request) ([]string, error) {
	if len(req.Titles) == 0 {
		return nil, fmt.Errorf("source %s: no titles configured", req.SourceName)
	}
	return append([]string(nil), req.Titles...), nil
}
