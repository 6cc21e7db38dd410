package telemetry

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/fmidev/geonames-engine/pkg/kafka"
)

// Collector publishes reload and query events to Kafka through a bounded,
// non-blocking buffer: a full buffer drops the event rather than stalling
// the query or reload path that produced it, the same trade-off as the
// teacher's analytics.Collector.
type Collector struct {
	reloadProducer *kafka.Producer
	queryProducer  *kafka.Producer
	eventCh        chan queuedEvent
	sampleRate     float64
	logger         *slog.Logger
	done           chan struct{}
}

type queuedEvent struct {
	producer *kafka.Producer
	event    kafka.Event
}

// NewCollector returns a Collector that publishes reload events via
// reloadProducer and sampled query events via queryProducer. sampleRate is
// the fraction of query events actually published, in [0, 1]; values
// outside that range are clamped.
func NewCollector(reloadProducer, queryProducer *kafka.Producer, bufferSize int, sampleRate float64) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if sampleRate < 0 {
		sampleRate = 0
	}
	if sampleRate > 1 {
		sampleRate = 1
	}
	return &Collector{
		reloadProducer: reloadProducer,
		queryProducer:  queryProducer,
		eventCh:        make(chan queuedEvent, bufferSize),
		sampleRate:     sampleRate,
		logger:         slog.Default().With("component", "telemetry-collector"),
		done:           make(chan struct{}),
	}
}

// Start launches the background publish loop; it runs until ctx is
// cancelled, then drains whatever remains buffered before returning.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case qe, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, qe)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("telemetry collector started", "buffer_size", cap(c.eventCh), "sample_rate", c.sampleRate)
}

// TrackReload always publishes a reload event; reload events are rare and
// operationally significant enough to never sample away.
func (c *Collector) TrackReload(event ReloadEvent) {
	c.enqueue(queuedEvent{producer: c.reloadProducer, event: kafka.Event{Key: "reload", Value: event}})
}

// TrackQuery publishes event with probability sampleRate.
func (c *Collector) TrackQuery(event QueryEvent) {
	if !c.shouldSample() {
		return
	}
	c.enqueue(queuedEvent{producer: c.queryProducer, event: kafka.Event{Key: event.Operation, Value: event}})
}

func (c *Collector) shouldSample() bool {
	if c.sampleRate >= 1 {
		return true
	}
	if c.sampleRate <= 0 {
		return false
	}
	return rand.Float64() < c.sampleRate
}

func (c *Collector) enqueue(qe queuedEvent) {
	select {
	case c.eventCh <- qe:
	default:
		c.logger.Warn("telemetry event dropped (buffer full)", "key", qe.event.Key)
	}
}

// Close stops accepting new events and waits for the publish loop to drain.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, qe queuedEvent) {
	if err := qe.producer.Publish(ctx, qe.event); err != nil {
		c.logger.Error("failed to publish telemetry event", "key", qe.event.Key, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx := context.Background()
	for {
		select {
		case qe, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, qe)
		default:
			return
		}
	}
}
