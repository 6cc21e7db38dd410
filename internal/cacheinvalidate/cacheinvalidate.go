// Package cacheinvalidate broadcasts and listens for cross-instance cache
// invalidation notices over Redis pub/sub. A fresh C8 reload already gives
// its own process a stale-free cache (Reload purges the process's LRU), but
// sibling processes sharing the same database have no way to learn a reload
// happened; this package closes that gap the way the teacher's pkg/redis
// client is built to support pattern-based invalidation within one process,
// generalized to a publish/subscribe notice across processes.
package cacheinvalidate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fmidev/geonames-engine/internal/cache"
	"github.com/fmidev/geonames-engine/pkg/redis"
)

// Notice is the payload broadcast on a successful reload.
type Notice struct {
	Fingerprint string    `json:"fingerprint"`
	ReloadedAt  time.Time `json:"reloaded_at"`
}

// Publisher broadcasts a Notice. The administrative reload handler
// publishes one after each successful reload it runs; reloads started by
// autoreload are not broadcast.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewPublisher returns a Publisher that broadcasts on channel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  slog.Default().With("component", "cache-invalidate-publisher"),
	}
}

// Publish broadcasts a cache-invalidation notice for fingerprint. A failure
// to publish is logged, not fatal: the publishing instance already has a
// fresh cache, only siblings miss the notice and fall back to natural TTL
// churn.
func (p *Publisher) Publish(ctx context.Context, fingerprint string) {
	payload, err := json.Marshal(Notice{Fingerprint: fingerprint, ReloadedAt: time.Now()})
	if err != nil {
		p.logger.Error("failed to encode cache invalidation notice", "error", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload); err != nil {
		p.logger.Error("failed to publish cache invalidation notice", "error", err)
	}
}

// Subscriber listens for Notice broadcasts and purges a local cache in
// response, so a sibling process's cache never outlives the dataset
// generation that produced its entries.
type Subscriber struct {
	client  *redis.Client
	channel string
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewSubscriber returns a Subscriber that purges localCache whenever a
// Notice arrives on channel.
func NewSubscriber(client *redis.Client, channel string, localCache *cache.Cache) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channel,
		cache:   localCache,
		logger:  slog.Default().With("component", "cache-invalidate-subscriber"),
	}
}

// Listen blocks, purging localCache on every received notice, until ctx is
// cancelled.
func (s *Subscriber) Listen(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	s.logger.Info("cache invalidation subscriber listening", "channel", s.channel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(msg.Payload)
		}
	}
}

func (s *Subscriber) handle(payload string) {
	var notice Notice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		s.logger.Error("failed to decode cache invalidation notice", "error", err)
		return
	}
	s.cache.Purge()
	s.logger.Info("local cache purged on invalidation notice", "fingerprint", notice.Fingerprint)
}
