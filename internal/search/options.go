package search

import (
	"log/slog"
	"time"

	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithExpander sets the semantic expander (default: NewSemanticExpander()).
func WithExpander(x *SemanticExpander) EngineOption {
	return func(e *Engine) {
		if x != nil {
			e.expander = x
		}
	}
}

// WithScorerWeights overrides the ranking weights.
func WithScorerWeights(w Weights) EngineOption {
	return func(e *Engine) {
		e.weights = w
	}
}

// WithMetrics sets an optional query metrics collector. When set, query
// kinds, terms, latency and zero-result queries are tracked.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCollectors sets optional Prometheus collectors.
func WithCollectors(c *telemetry.Collectors) EngineOption {
	return func(e *Engine) {
		e.collectors = c
	}
}

// WithRecordSource sets where full records are looked up for results.
func WithRecordSource(src RecordSource) EngineOption {
	return func(e *Engine) {
		e.source = src
	}
}

// WithClock overrides the time source used for recency scoring and latency.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMaxDistance sets the fuzzy edit-distance budget.
func WithMaxDistance(d int) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.config.MaxDistance = d
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
