// Package rank implements the additive priority ranker (C7): priority is the
// sum of country, area, population, and feature scores; the population
// score is scaled so that integer divisors still leave room for
// tie-breaking.
package rank

import (
	"math"
	"sort"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

// scale is the factor the population score is multiplied by so integer
// population divisors still separate candidates meaningfully.
const scale = 1000

const defaultKey = "default"

// Tables holds the lookup tables the ranker consults, built from
// PriorityConfig at load time.
type Tables struct {
	Countries   map[string]int64
	Areas       map[string]int64
	Populations map[string]int64
	// Features maps iso2 -> named feature map, and FeatureMaps resolves the
	// named map to a feature->value table, mirroring the original engine's
	// per-country named priority maps.
	Features    map[string]string
	FeatureMaps map[string]map[geoname.Feature]int64
	ExactMatch  int64
}

// NewTables returns an empty Tables ready for population from config.
func NewTables() *Tables {
	return &Tables{
		Countries:   make(map[string]int64),
		Areas:       make(map[string]int64),
		Populations: make(map[string]int64),
		Features:    make(map[string]string),
		FeatureMaps: make(map[string]map[geoname.Feature]int64),
	}
}

// Rank returns loc's computed priority, a deterministic pure function of
// (loc.ISO2, loc.Population, loc.Area, loc.Feature) and t.
func Rank(loc geoname.Location, t *Tables) int64 {
	return countryScore(loc.ISO2, t) +
		areaScore(loc.Area, t) +
		populationScore(loc.ISO2, loc.Population, t) +
		featureScore(loc.ISO2, loc.Feature, t)
}

func countryScore(iso2 string, t *Tables) int64 {
	if v, ok := t.Countries[iso2]; ok {
		return v
	}
	if v, ok := t.Countries[defaultKey]; ok {
		return v
	}
	return 0
}

func areaScore(area string, t *Tables) int64 {
	if v, ok := t.Areas[area]; ok {
		return v
	}
	if v, ok := t.Areas[defaultKey]; ok {
		return v
	}
	return 0
}

func populationScore(iso2 string, population int64, t *Tables) int64 {
	divisor, ok := t.Populations[iso2]
	if !ok {
		divisor, ok = t.Populations[defaultKey]
	}
	if !ok || divisor == 0 {
		return 0
	}
	return int64(math.Round(scale * float64(population) / float64(divisor)))
}

func featureScore(iso2 string, feature geoname.Feature, t *Tables) int64 {
	mapName, ok := t.Features[iso2]
	if !ok {
		mapName, ok = t.Features[defaultKey]
	}
	if !ok {
		return 0
	}
	featureMap, ok := t.FeatureMaps[mapName]
	if !ok {
		return 0
	}
	if v, ok := featureMap[feature]; ok {
		return v
	}
	return 0
}

// SortByPriority sorts refs by (-priority) descending, ties broken by
// insertion order (a stable sort over the input order), the shape used by
// the C8 `sort` operation.
func SortByPriority(refs []geoname.Ref, store *geoname.Store) {
	sort.SliceStable(refs, func(i, j int) bool {
		return store.Get(refs[i]).Priority > store.Get(refs[j]).Priority
	})
}
