// Package telemetry publishes reload and query events to Kafka and
// aggregates rolling statistics from them, the way the teacher's
// internal/analytics package turns search/index events into dashboard
// stats. Here the events are reload.completed plus sampled query.* events
// instead of document search/index events.
package telemetry

import "time"

// EventType names a telemetry event published onto the reload-events or
// query-events topic.
type EventType string

const (
	EventReloadCompleted EventType = "reload.completed"
	EventReloadFailed    EventType = "reload.failed"
	EventQuerySuggest    EventType = "query.suggest"
	EventQuerySearch     EventType = "query.search"
	EventQueryNearest    EventType = "query.nearest"
)

// ReloadEvent reports the outcome of one C8 reload cycle.
type ReloadEvent struct {
	Type          EventType `json:"type"`
	Fingerprint   string    `json:"fingerprint"`
	LocationCount int       `json:"location_count"`
	DurationMs    int64     `json:"duration_ms"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// QueryEvent is a sampled record of one query operation, published for
// offline analysis; not every query is published, only a configured
// fraction (see Collector.shouldSample).
type QueryEvent struct {
	Type       EventType `json:"type"`
	Operation  string    `json:"operation"`
	Pattern    string    `json:"pattern,omitempty"`
	ResultSize int       `json:"result_size"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
}
