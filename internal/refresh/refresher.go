// Package refresh rebuilds the search index from the catalog and publishes
// the result atomically. The index itself is immutable once built, so a
// refresh constructs a fresh instance and swaps a pointer; queries in flight
// keep reading the previous generation.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tobiaswidmer/poisearch/internal/analytics"
	"github.com/tobiaswidmer/poisearch/internal/index"
	"github.com/tobiaswidmer/poisearch/internal/searcher/cache"
	pkgerrors "github.com/tobiaswidmer/poisearch/pkg/errors"
	"github.com/tobiaswidmer/poisearch/pkg/kafka"
	"github.com/tobiaswidmer/poisearch/pkg/logger"
	"github.com/tobiaswidmer/poisearch/pkg/metrics"
	"github.com/tobiaswidmer/poisearch/pkg/resilience"
)

// BuildFunc constructs a fresh, fully built index from the catalog.
type BuildFunc func(ctx context.Context) (*index.PointIndex, error)

// Refresher owns the live index pointer and the rebuild schedule.
type Refresher struct {
	build        BuildFunc
	current      atomic.Pointer[index.PointIndex]
	interval     time.Duration
	buildTimeout time.Duration
	breaker      *resilience.CircuitBreaker
	retryCfg     resilience.RetryConfig
	cache        *cache.ResultCache
	metrics      *metrics.Metrics
	coll         *analytics.Collector
	logger       *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithCache invalidates the result cache after each successful swap.
func WithCache(c *cache.ResultCache) Option {
	return func(r *Refresher) { r.cache = c }
}

// WithMetrics records rebuild counters and index size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

// WithRetry overrides the backoff used around catalog builds.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(r *Refresher) { r.retryCfg = cfg }
}

// WithBuildTimeout bounds a single catalog pull and index build; the default
// is five minutes.
func WithBuildTimeout(d time.Duration) Option {
	return func(r *Refresher) { r.buildTimeout = d }
}

// WithAnalytics publishes a RebuildEvent after each successful swap.
func WithAnalytics(c *analytics.Collector) Option {
	return func(r *Refresher) { r.coll = c }
}

// New creates a Refresher. The initial index must be installed with a first
// call to Refresh before serving queries.
func New(build BuildFunc, interval time.Duration, opts ...Option) *Refresher {
	r := &Refresher{
		build:        build,
		interval:     interval,
		buildTimeout: 5 * time.Minute,
		breaker:      resilience.NewCircuitBreaker("catalog-refresh", resilience.CircuitBreakerConfig{}),
		retryCfg:     resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Second},
		logger:       logger.WithComponent("refresher"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the live index, or nil before the first successful build.
func (r *Refresher) Current() *index.PointIndex {
	return r.current.Load()
}

// FindMatches queries the live index.
func (r *Refresher) FindMatches(q index.Query) ([]index.Match, error) {
	idx := r.current.Load()
	if idx == nil {
		return nil, pkgerrors.New(pkgerrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "index not built yet")
	}
	return idx.FindMatches(q)
}

// Refresh builds a new index and swaps it in. Failures leave the previous
// generation serving.
func (r *Refresher) Refresh(ctx context.Context, trigger string) error {
	start := time.Now()
	var fresh *index.PointIndex
	err := r.breaker.Execute(func() error {
		return resilience.Retry(ctx, "index-build", r.retryCfg, func() error {
			return resilience.WithTimeout(ctx, r.buildTimeout, "index-build", func(ctx context.Context) error {
				var buildErr error
				fresh, buildErr = r.build(ctx)
				return buildErr
			})
		})
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.IndexRebuildsTotal.WithLabelValues("failure").Inc()
		}
		r.logger.Error("index rebuild failed", "trigger", trigger, "error", err)
		return fmt.Errorf("rebuilding index: %w", err)
	}

	r.current.Store(fresh)
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
		r.metrics.IndexBuildDuration.Observe(duration.Seconds())
		r.metrics.IndexRecords.Set(float64(fresh.Len()))
		r.metrics.CircuitBreakerState.WithLabelValues("catalog-refresh").Set(float64(r.breaker.GetState()))
	}
	if r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			r.logger.Warn("cache invalidation after rebuild failed", "error", err)
		}
	}
	if r.coll != nil {
		r.coll.Track(analytics.RebuildEvent{
			Records:    fresh.Len(),
			DurationMs: duration.Milliseconds(),
			Trigger:    trigger,
			Timestamp:  time.Now().UTC(),
		})
	}
	r.logger.Info("index swapped",
		"trigger", trigger,
		"records", fresh.Len(),
		"duration", duration.Round(time.Millisecond),
	)
	return nil
}

// Run refreshes on a fixed interval until ctx is cancelled. A zero interval
// disables periodic refresh.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("periodic refresh disabled")
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx, "interval"); err != nil {
				r.logger.Error("periodic refresh failed", "error", err)
			}
		}
	}
}

// TriggerMessage is the payload of a catalog-refresh Kafka message.
type TriggerMessage struct {
	Reason string `json:"reason"`
}

// TriggerHandler returns a Kafka handler that refreshes the index whenever
// a message arrives on the catalog-refresh topic.
func (r *Refresher) TriggerHandler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		msg, err := kafka.DecodeJSON[TriggerMessage](value)
		if err != nil {
			r.logger.Error("ignoring malformed refresh trigger", "error", err)
			return nil
		}
		r.logger.Info("refresh triggered via kafka", "reason", msg.Reason)
		return r.Refresh(ctx, "kafka")
	}
}
