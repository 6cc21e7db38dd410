package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fmidev/geonames-engine/pkg/kafka"
)

// ReloadStats is the rolling summary of observed reload events, exposed via
// the admin geonames?type=meta endpoint.
type ReloadStats struct {
	TotalReloads      int64     `json:"total_reloads"`
	FailedReloads     int64     `json:"failed_reloads"`
	LastFingerprint   string    `json:"last_fingerprint"`
	LastLocationCount int       `json:"last_location_count"`
	LastDurationMs    int64     `json:"last_duration_ms"`
	LastReloadAt      time.Time `json:"last_reload_at"`
	AvgDurationMs     float64   `json:"avg_duration_ms"`
}

// OperationCount tallies how many sampled query events were seen for one
// operation name (suggest, search, nearest).
type OperationCount struct {
	Operation string `json:"operation"`
	Count     int64  `json:"count"`
}

// QueryStats is the rolling summary of sampled query events.
type QueryStats struct {
	TotalSampled  int64            `json:"total_sampled"`
	CacheHits     int64            `json:"cache_hits"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	ByOperation   []OperationCount `json:"by_operation"`
}

// Aggregator consumes reload and query events from their Kafka topics and
// maintains rolling, in-memory statistics, the way the teacher's
// analytics.Aggregator turns a Kafka stream into Stats().
type Aggregator struct {
	mu sync.RWMutex

	totalReloads  atomic.Int64
	failedReloads atomic.Int64
	reloadDurs    []int64
	lastReload    ReloadEvent

	totalSampled atomic.Int64
	cacheHits    atomic.Int64
	latencies    []int64
	opCounts     map[string]int64

	reloadConsumer *kafka.Consumer
	queryConsumer  *kafka.Consumer
	logger         *slog.Logger
}

// NewAggregator returns an Aggregator that will consume from reloadConsumer
// and queryConsumer once Start is called. The handlers the consumers invoke
// must be ReloadHandler(agg) and QueryHandler(agg) respectively.
func NewAggregator(reloadConsumer, queryConsumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		reloadDurs:     make([]int64, 0, 256),
		latencies:      make([]int64, 0, 10000),
		opCounts:       make(map[string]int64),
		reloadConsumer: reloadConsumer,
		queryConsumer:  queryConsumer,
		logger:         slog.Default().With("component", "telemetry-aggregator"),
	}
}

// Start runs both consume loops concurrently until ctx is cancelled or
// either returns an error.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("telemetry aggregator starting")
	errCh := make(chan error, 2)
	go func() { errCh <- a.reloadConsumer.Start(ctx) }()
	go func() { errCh <- a.queryConsumer.Start(ctx) }()
	if err := <-errCh; err != nil {
		return err
	}
	return <-errCh
}

// ReloadHandler returns a kafka.MessageHandler that decodes ReloadEvent
// payloads and records them into agg.
func ReloadHandler(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ReloadEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode reload event", "error", err)
			return nil
		}
		agg.recordReload(event)
		return nil
	}
}

// QueryHandler returns a kafka.MessageHandler that decodes QueryEvent
// payloads and records them into agg.
func QueryHandler(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		agg.recordQuery(event)
		return nil
	}
}

func (a *Aggregator) recordReload(event ReloadEvent) {
	a.totalReloads.Add(1)
	if event.Type == EventReloadFailed {
		a.failedReloads.Add(1)
	}

	a.mu.Lock()
	a.reloadDurs = append(a.reloadDurs, event.DurationMs)
	if event.Type == EventReloadCompleted {
		a.lastReload = event
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordQuery(event QueryEvent) {
	a.totalSampled.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.opCounts[event.Operation]++
	a.mu.Unlock()
}

// ReloadStats returns a snapshot of rolling reload statistics.
func (a *Aggregator) ReloadStats() ReloadStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := ReloadStats{
		TotalReloads:      a.totalReloads.Load(),
		FailedReloads:     a.failedReloads.Load(),
		LastFingerprint:   a.lastReload.Fingerprint,
		LastLocationCount: a.lastReload.LocationCount,
		LastDurationMs:    a.lastReload.DurationMs,
		LastReloadAt:      a.lastReload.Timestamp,
	}
	if len(a.reloadDurs) > 0 {
		var sum int64
		for _, d := range a.reloadDurs {
			sum += d
		}
		stats.AvgDurationMs = float64(sum) / float64(len(a.reloadDurs))
	}
	return stats
}

// QueryStats returns a snapshot of rolling sampled-query statistics.
func (a *Aggregator) QueryStats() QueryStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := QueryStats{
		TotalSampled: a.totalSampled.Load(),
		CacheHits:    a.cacheHits.Load(),
	}
	if len(a.latencies) > 0 {
		var sum int64
		for _, l := range a.latencies {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(a.latencies))
	}
	stats.ByOperation = make([]OperationCount, 0, len(a.opCounts))
	for op, count := range a.opCounts {
		stats.ByOperation = append(stats.ByOperation, OperationCount{Operation: op, Count: count})
	}
	sort.Slice(stats.ByOperation, func(i, j int) bool {
		return stats.ByOperation[i].Count > stats.ByOperation[j].Count
	})
	return stats
}
