// Package analytics publishes search telemetry to Kafka. Events are buffered
// in-process and shipped asynchronously so the query path never blocks on
// the broker.
package analytics

import "time"

// EventType classifies an analytics event.
type EventType string

const (
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one completed search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	ChannelID string    `json:"channel_id,omitempty"`
	K         int       `json:"k"`
	Returned  int       `json:"returned"`
	TopScore  float64   `json:"top_score"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// RebuildEvent describes one catalog refresh and index rebuild.
type RebuildEvent struct {
	Records    int       `json:"records"`
	DurationMs int64     `json:"duration_ms"`
	Trigger    string    `json:"trigger"`
	Timestamp  time.Time `json:"timestamp"`
}
