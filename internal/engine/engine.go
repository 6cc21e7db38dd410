// Package engine implements the C8 query front-end: the shared atomic
// pointer to the current dataset generation, the reload protocol, and the
// public query operations that read it. A reload builds an entirely new
// generation off the critical path and swaps the pointer atomically on
// success; in-flight queries always observe one complete, internally
// consistent generation, never a partial one.
//
// The specification describes name/lonlat/id/keyword_search as hitting the
// database through a pooled connection. In this engine those four query
// families instead read the in-memory indices C1-C7 already materialize for
// exactly this purpose (Store, Keywords, Spatial, Suggest) — re-querying the
// relational source per call would defeat the point of building them. The
// worker pool is kept as the concurrency-bounding mechanism the
// specification calls for, wrapping the in-memory lookup instead of a SQL
// round trip; see DESIGN.md for the fuller rationale.
package engine

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fmidev/geonames-engine/internal/cache"
	"github.com/fmidev/geonames-engine/internal/demland"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/loader"
	"github.com/fmidev/geonames-engine/internal/snapshot"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/telemetry"
	"github.com/fmidev/geonames-engine/internal/workerpool"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// suggestReadyPollInterval is the sleep between "suggest ready" checks that
// nearest and keyword_search perform during the initial load, per §5's
// suspension-point rule.
const suggestReadyPollInterval = 100 * time.Millisecond

// Engine holds the single shared pointer to the current generation plus the
// supporting services (cache, worker pool, DEM/LandCover binding, deny-list)
// that every query operation consults.
type Engine struct {
	gen atomic.Pointer[loader.Generation]

	loader *loader.Loader
	cache  *cache.Cache
	pool   *workerpool.Pool
	dem    *demland.Binding

	normalizer      *suggest.Normalizer
	exactMatchBonus int64

	denyPatterns     []*regexp.Regexp
	securityDisabled bool

	collector *telemetry.Collector

	reloading atomic.Bool
	logger    *slog.Logger
}

// SetCollector attaches a telemetry collector after construction, so
// cmd/geonamesd can wire Kafka only once its producers are up. A nil
// collector (the default) simply means reload events aren't published.
func (e *Engine) SetCollector(c *telemetry.Collector) {
	e.collector = c
}

// New builds an Engine. denyPatterns are compiled once; an unparseable
// pattern is a configuration error and fails construction, matching §7's
// "configuration errors are fatal at startup" rule.
func New(ld *loader.Loader, c *cache.Cache, pool *workerpool.Pool, dem *demland.Binding, normalizer *suggest.Normalizer, exactMatchBonus int64, denyPatterns []string, securityDisabled bool) (*Engine, error) {
	compiled := make([]*regexp.Regexp, 0, len(denyPatterns))
	for _, pattern := range denyPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrConfig, 500, "invalid security.names.deny pattern %q: %v", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &Engine{
		loader:           ld,
		cache:            c,
		pool:             pool,
		dem:              dem,
		normalizer:       normalizer,
		exactMatchBonus:  exactMatchBonus,
		denyPatterns:     compiled,
		securityDisabled: securityDisabled,
		logger:           slog.Default().With("component", "engine"),
	}, nil
}

// Load performs the first, synchronous data load. Any failure is fatal;
// there is no previous generation to fall back to.
func (e *Engine) Load(ctx context.Context) error {
	e.reloading.Store(true)
	defer e.reloading.Store(false)
	gen, err := e.loader.Load(ctx)
	if err != nil {
		return err
	}
	e.gen.Store(gen)
	return nil
}

// Restore publishes an already-built generation directly, bypassing the
// loader entirely. It exists for the startup warm-start path: a caller
// that restored a generation from an on-disk snapshot and completed it via
// (*loader.Loader).Warmstart still needs a way to make it the one queries
// observe, without re-running Load.
func (e *Engine) Restore(gen *loader.Generation) {
	e.gen.Store(gen)
}

// WriteSnapshot persists the currently published generation to dir for a
// future warm start, delegating to internal/snapshot.
func (e *Engine) WriteSnapshot(dir string) (string, error) {
	return snapshot.Write(e.current(), dir)
}

// Reload runs the C8 reload protocol: reject re-entry, build off the
// critical path, swap atomically on success, keep serving the old
// generation and record the error on failure.
func (e *Engine) Reload(ctx context.Context) error {
	if !e.reloading.CompareAndSwap(false, true) {
		return apperrors.New(apperrors.ErrReloadInProgress, 409, "reload already in progress")
	}
	defer e.reloading.Store(false)

	start := time.Now()
	gen, err := e.loader.Load(ctx)
	if err != nil {
		e.logger.Error("reload failed, continuing to serve the previous generation", "error", err)
		e.trackReload(telemetry.EventReloadFailed, nil, time.Since(start), err)
		return err
	}
	e.gen.Store(gen)
	e.cache.Purge()
	e.logger.Info("reload succeeded", "fingerprint", gen.Fingerprint)
	e.trackReload(telemetry.EventReloadCompleted, gen, time.Since(start), nil)
	return nil
}

// trackReload reports one reload outcome to the attached collector, if any.
func (e *Engine) trackReload(eventType telemetry.EventType, gen *loader.Generation, duration time.Duration, reloadErr error) {
	if e.collector == nil {
		return
	}
	event := telemetry.ReloadEvent{
		Type:       eventType,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now(),
	}
	if gen != nil {
		event.Fingerprint = strconv.FormatInt(gen.Fingerprint, 10)
		event.LocationCount = gen.Store.Len()
	}
	if reloadErr != nil {
		event.Error = reloadErr.Error()
	}
	e.collector.TrackReload(event)
}

// Shutdown waits for any in-flight reload (including the initial Load) to
// finish, then closes the worker pool so new Submit calls are rejected,
// matching the protocol's step 4.
func (e *Engine) Shutdown(ctx context.Context) error {
	for e.reloading.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(suggestReadyPollInterval):
		}
	}
	e.pool.Close()
	return nil
}

// current returns the generation currently published. Callers should load
// it once per query and operate on the returned value for the query's
// duration, rather than re-reading the pointer mid-query.
func (e *Engine) current() *loader.Generation {
	return e.gen.Load()
}

// Meta reports the currently published generation's identity, for the
// administrative geonames?type=meta endpoint.
type Meta struct {
	Fingerprint    int64
	HasFingerprint bool
	LocationCount  int
	KeywordCount   int
	Warnings       []string
}

// Meta returns the current generation's metadata.
func (e *Engine) Meta() Meta {
	gen := e.current()
	return Meta{
		Fingerprint:    gen.Fingerprint,
		HasFingerprint: gen.HasFingerprint,
		LocationCount:  gen.Store.Len(),
		KeywordCount:   len(gen.Keywords.Keywords()),
		Warnings:       gen.Warnings,
	}
}

// CacheStats reports the query front-end's result cache hit/miss counters,
// for the administrative geonames?type=cache endpoint.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// waitForSuggestReady blocks, sleeping suggestReadyPollInterval at a time,
// until gen's suggest index is marked ready or ctx is cancelled. Only
// nearest and keyword_search observe this suspension point, per §5.
func (e *Engine) waitForSuggestReady(ctx context.Context, gen *loader.Generation) error {
	for !gen.Suggest.Ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(suggestReadyPollInterval):
		}
	}
	return nil
}

// checkForbidden rejects name if it matches any configured deny pattern,
// unless the security layer is disabled.
func (e *Engine) checkForbidden(name string) error {
	if e.securityDisabled {
		return nil
	}
	for _, re := range e.denyPatterns {
		if re.MatchString(name) {
			return apperrors.Newf(apperrors.ErrForbiddenName, 400, "name %q matches a forbidden pattern", name)
		}
	}
	return nil
}

// defaultKeyword is the synthetic keyword that scopes an unkeyworded search
// to the entire corpus.
const defaultKeyword = keyword.All
