package completion

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Engine fans a completion request out over its registered providers and
// merges the results. A provider that errors is skipped, not fatal; the
// remaining providers still contribute.
type Engine struct {
	providers []Provider
	logger    *slog.Logger
}

// NewEngine builds an empty Engine. A nil logger falls back to slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// AddProvider registers a provider. Providers run in registration order.
func (e *Engine) AddProvider(p Provider) {
	e.providers = append(e.providers, p)
}

// GetCompletions collects suggestions from every enabled provider, sorted by
// confidence descending and deduplicated by text (highest confidence wins).
func (e *Engine) GetCompletions(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	var all []Completion

	for _, provider := range e.providers {
		if !provider.Enabled() {
			continue
		}
		completions, err := provider.Complete(ctx, req)
		if err != nil {
			e.logger.Warn("completion provider failed", "provider", provider.Name(), "error", err)
			continue
		}
		e.logger.Debug("completion provider returned", "provider", provider.Name(), "count", len(completions))
		all = append(all, completions...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})

	seen := make(map[string]struct{}, len(all))
	deduped := all[:0]
	for _, c := range all {
		if _, ok := seen[c.Text]; ok {
			continue
		}
		seen[c.Text] = struct{}{}
		deduped = append(deduped, c)
	}

	return &Response{
		Completions:      deduped,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}
