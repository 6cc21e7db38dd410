// Package cache implements the C10 result caches: an LRU cache shared by
// name/id/lonlat/keyword searches, each under its own key prefix so a
// string that is both a place name and a keyword label never collides.
// Empty results are cached for name_search (configurable) but never for
// lonlat/id/keyword, matching the specification's cache policy.
package cache

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// Prefixes distinguish otherwise-identical hash keys across query kinds;
// the keyword prefix is seeded separately per the cache-key hygiene note:
// a string can legally be both a place name and a keyword label.
const (
	prefixName    = "name:"
	prefixID      = "id:"
	prefixLonLat  = "lonlat:"
	prefixKeyword = "keyword:"
)

// entry is a cached result: a location list plus whether the underlying
// query returned nothing, to distinguish "no entry" from "empty result".
type entry struct {
	locations []geoname.Location
	empty     bool
}

// Cache is the shared LRU result cache for the four database-backed query
// families, with a singleflight group so a burst of identical misses
// computes the underlying query exactly once.
type Cache struct {
	lru                   *lru.Cache[string, entry]
	group                 singleflight.Group
	cacheEmptyNameResults bool
	logger                *slog.Logger
	hits                  atomic.Int64
	misses                atomic.Int64
}

// New builds a Cache with the given maximum size.
func New(maxSize int, cacheEmptyNameResults bool) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	backing, err := lru.New[string, entry](maxSize)
	if err != nil {
		// Only returns an error for size <= 0, already guarded above.
		panic(fmt.Sprintf("cache: lru.New failed: %v", err))
	}
	return &Cache{
		lru:                   backing,
		cacheEmptyNameResults: cacheEmptyNameResults,
		logger:                slog.Default().With("component", "result-cache"),
	}
}

// NameKey builds the cache key for a name_search call.
func NameKey(name string, optionsHash string) string {
	return hashedKey(prefixName, name+"|"+optionsHash)
}

// IDKey builds the cache key for an id_search call.
func IDKey(geoid int64, optionsHash string) string {
	return hashedKey(prefixID, fmt.Sprintf("%d|%s", geoid, optionsHash))
}

// LonLatKey builds the cache key for a lonlat_search call.
func LonLatKey(lon, lat, radius float64, optionsHash string) string {
	return hashedKey(prefixLonLat, fmt.Sprintf("%f,%f,%f|%s", lon, lat, radius, optionsHash))
}

// KeywordKey builds the cache key for a keyword_search call.
func KeywordKey(keyword string, optionsHash string) string {
	return hashedKey(prefixKeyword, keyword+"|"+optionsHash)
}

func hashedKey(prefix, raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", prefix, sum[:16])
}

// Get returns the cached locations for key, reporting whether there was a
// cache entry at all (as opposed to an entry recording an empty result).
func (c *Cache) Get(key string) ([]geoname.Location, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	if e.empty {
		return nil, true
	}
	return e.locations, true
}

// Set records locations under key. allowEmpty controls whether an empty
// result is actually stored (name_search passes its configured policy;
// lonlat/id/keyword pass false).
func (c *Cache) Set(key string, locations []geoname.Location, allowEmpty bool) {
	if len(locations) == 0 && !allowEmpty {
		return
	}
	c.lru.Add(key, entry{locations: locations, empty: len(locations) == 0})
}

// GetOrCompute returns the cached value for key if present, otherwise runs
// compute exactly once even under concurrent callers for the same key, via
// singleflight, and caches the result per allowEmpty.
func (c *Cache) GetOrCompute(key string, allowEmpty bool, compute func() ([]geoname.Location, error)) ([]geoname.Location, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		locations, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(key, locations, allowEmpty)
		return locations, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]geoname.Location), nil
}

// AllowEmptyForNameSearch reports the configured empty-result caching
// policy for name_search (REDESIGN decision: configurable, default true).
func (c *Cache) AllowEmptyForNameSearch() bool {
	return c.cacheEmptyNameResults
}

// Purge drops every cached entry; called on a successful reload since a new
// generation invalidates every previous entry's meaning.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats returns the running hit/miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
