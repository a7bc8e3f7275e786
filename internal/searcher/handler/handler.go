// Package handler exposes the search API over HTTP.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tobiaswidmer/poisearch/internal/analytics"
	"github.com/tobiaswidmer/poisearch/internal/index"
	"github.com/tobiaswidmer/poisearch/internal/index/tokenizer"
	"github.com/tobiaswidmer/poisearch/internal/searcher/cache"
	pkgerrors "github.com/tobiaswidmer/poisearch/pkg/errors"
	"github.com/tobiaswidmer/poisearch/pkg/logger"
	"github.com/tobiaswidmer/poisearch/pkg/metrics"
)

// Searcher answers ranked match queries against the live index.
type Searcher interface {
	FindMatches(q index.Query) ([]index.Match, error)
}

// SearchResponse is the JSON body returned by the search endpoint.
type SearchResponse struct {
	Query   string        `json:"query"`
	Channel string        `json:"channel,omitempty"`
	Count   int           `json:"count"`
	Matches []index.Match `json:"matches"`
}

// Handler serves the search endpoints.
type Handler struct {
	searcher  Searcher
	cache     *cache.ResultCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	defaultK  int
	maxK      int
	logger    *slog.Logger
}

// New creates a Handler. Cache, collector, and metrics may be nil.
func New(searcher Searcher, resultCache *cache.ResultCache, collector *analytics.Collector, m *metrics.Metrics, defaultK, maxK int) *Handler {
	if defaultK <= 0 {
		defaultK = index.DefaultK
	}
	if maxK <= 0 {
		maxK = 50
	}
	return &Handler{
		searcher:  searcher,
		cache:     resultCache,
		collector: collector,
		metrics:   m,
		defaultK:  defaultK,
		maxK:      maxK,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=...&k=...&channel=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	queryText := r.URL.Query().Get("q")
	if queryText == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	k := h.defaultK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		if parsed > h.maxK {
			parsed = h.maxK
		}
		k = parsed
	}
	channel := r.URL.Query().Get("channel")

	// The index holds normalized names and its scorers are case-sensitive,
	// so the raw query is normalized once here, before it reaches the cache
	// key and the index alike.
	q := index.Query{Text: tokenizer.Normalize(queryText), K: k, ChannelID: channel}

	var matches []index.Match
	var err error
	cacheHit := false
	if h.cache != nil {
		matches, cacheHit, err = h.cache.GetOrCompute(ctx, q, func() ([]index.Match, error) {
			return h.searcher.FindMatches(q)
		})
	} else {
		matches, err = h.searcher.FindMatches(q)
	}
	if err != nil {
		log.Error("search failed", "query", queryText, "error", err)
		h.writeError(w, pkgerrors.HTTPStatusCode(err), "search failed")
		if h.metrics != nil {
			h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", queryText,
		"channel", channel,
		"returned", len(matches),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	if h.metrics != nil {
		resultType := "hit"
		if len(matches) == 0 {
			resultType = "zero_result"
		}
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(matches)))
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}

	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		if len(matches) == 0 {
			eventType = analytics.EventZeroResult
		}
		var topScore float64
		if len(matches) > 0 {
			topScore = matches[0].Score
		}
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     queryText,
			ChannelID: channel,
			K:         k,
			Returned:  len(matches),
			TopScore:  topScore,
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.GetRequestID(ctx),
		})
	}

	if matches == nil {
		matches = []index.Match{}
	}
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   queryText,
		Channel: channel,
		Count:   len(matches),
		Matches: matches,
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
