package cache

import (
	"errors"
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New(10, true)
	key := NameKey("helsinki", "opt1")
	locs := []geoname.Location{geoname.NewLocation(1, "Helsinki")}
	c.Set(key, locs, true)

	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("Get after Set: missing entry")
	}
	if len(got) != 1 || got[0].Geoid != 1 {
		t.Fatalf("Get = %+v, want [Helsinki]", got)
	}
}

func TestEmptyResultNotCachedWhenDisallowed(t *testing.T) {
	c := New(10, false)
	key := LonLatKey(1, 1, 0, "opt")
	c.Set(key, nil, false)
	if _, ok := c.Get(key); ok {
		t.Fatalf("empty lonlat result should not be cached")
	}
}

func TestEmptyResultCachedForNameSearchWhenAllowed(t *testing.T) {
	c := New(10, true)
	key := NameKey("nowhere", "opt")
	c.Set(key, nil, c.AllowEmptyForNameSearch())
	locs, ok := c.Get(key)
	if !ok {
		t.Fatalf("empty name_search result should be cached when allowed")
	}
	if len(locs) != 0 {
		t.Fatalf("Get = %+v, want empty slice", locs)
	}
}

func TestKeywordAndNameKeysDoNotCollide(t *testing.T) {
	nameKey := NameKey("capital", "opt")
	kwKey := KeywordKey("capital", "opt")
	if nameKey == kwKey {
		t.Fatalf("NameKey and KeywordKey collided for identical term: %q", nameKey)
	}
}

func TestGetOrComputeCallsOnlyOncePerKey(t *testing.T) {
	c := New(10, true)
	key := IDKey(42, "opt")
	calls := 0
	compute := func() ([]geoname.Location, error) {
		calls++
		return []geoname.Location{geoname.NewLocation(42, "Turku")}, nil
	}

	for i := 0; i < 3; i++ {
		locs, err := c.GetOrCompute(key, false, compute)
		if err != nil {
			t.Fatalf("GetOrCompute returned error: %v", err)
		}
		if len(locs) != 1 || locs[0].Geoid != 42 {
			t.Fatalf("GetOrCompute = %+v, want [Turku]", locs)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1 (cached after first)", calls)
	}
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(10, true)
	key := IDKey(1, "opt")
	wantErr := errors.New("db unreachable")
	_, err := c.GetOrCompute(key, false, func() ([]geoname.Location, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute error = %v, want %v", err, wantErr)
	}
	if _, ok := c.Get(key); ok {
		t.Fatalf("failed compute must not populate the cache")
	}
}

func TestStatsTrackHitsAndMisses(t *testing.T) {
	c := New(10, true)
	key := NameKey("oulu", "opt")
	c.Get(key)
	c.Set(key, []geoname.Location{geoname.NewLocation(3, "Oulu")}, true)
	c.Get(key)

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("Stats = hits=%d misses=%d, want hits=1 misses=1", hits, misses)
	}
}

func TestPurgeClearsEntries(t *testing.T) {
	c := New(10, true)
	key := NameKey("vaasa", "opt")
	c.Set(key, []geoname.Location{geoname.NewLocation(4, "Vaasa")}, true)
	c.Purge()
	if _, ok := c.Get(key); ok {
		t.Fatalf("Get after Purge should miss")
	}
}
