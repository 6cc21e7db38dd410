package engine

import (
	"context"
	"testing"

	"github.com/fmidev/geonames-engine/internal/cache"
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/loader"
	"github.com/fmidev/geonames-engine/internal/spatial"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/translate"
	"github.com/fmidev/geonames-engine/internal/workerpool"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// buildGeneration constructs a small in-memory generation by hand, the same
// way loader.Load would after its SQL phase closes, so engine tests never
// need a database.
func buildGeneration(t *testing.T) *loader.Generation {
	t.Helper()

	store := geoname.NewStore(8)

	helsinki := geoname.NewLocation(100, "Helsinki")
	helsinki.ISO2, helsinki.Area = "FI", "Helsinki"
	helsinki.Longitude, helsinki.Latitude = 24.9384, 60.1699
	helsinkiRef := store.Append(helsinki)

	kumpula := geoname.NewLocation(200, "Kumpula")
	kumpula.ISO2, kumpula.Area = "FI", "Helsinki"
	kumpula.Longitude, kumpula.Latitude = 24.9642, 60.2089
	kumpula.Elevation, kumpula.Dem = 11, 24
	kumpulaRef := store.Append(kumpula)

	far := geoname.NewLocation(300, "FarPlace")
	far.ISO2, far.Area = "FI", "Finland"
	far.Longitude, far.Latitude = 25.5, 61.0
	farRef := store.Append(far)

	store.Freeze()
	store.SetPriority(helsinkiRef, 50)
	store.SetPriority(kumpulaRef, 80)
	store.SetPriority(farRef, 500)

	allRefs := store.All()
	kwIdx := keyword.NewIndex()
	kwIdx.Add("city", helsinkiRef)
	kwIdx.Add("city", kumpulaRef)
	kwIdx.Add("city", farRef)
	kwIdx.Freeze(allRefs)

	normalizer := suggest.NewNormalizer(suggest.NewCollator(""), true)
	b := suggest.NewBuilder(normalizer, false)
	for _, kw := range kwIdx.Keywords() {
		refs, _ := kwIdx.Members(kw)
		for _, ref := range refs {
			loc := store.Get(ref)
			b.AddCanonical(kw, ref, loc.Name, loc.Area, loc.Geoid)
		}
	}
	suggestIdx := b.Build()
	suggestIdx.MarkReady()

	spatialIdx := make(map[string]*spatial.Index, len(kwIdx.Keywords()))
	for _, kw := range kwIdx.Keywords() {
		refs, _ := kwIdx.Members(kw)
		sb := spatial.NewBuilder()
		for _, ref := range refs {
			loc := store.Get(ref)
			sb.Add(ref, loc.Longitude, loc.Latitude)
		}
		spatialIdx[kw] = sb.Build()
	}

	return &loader.Generation{
		Store:        store,
		Keywords:     kwIdx,
		Tables:       translate.NewTables(),
		Suggest:      suggestIdx,
		Spatial:      spatialIdx,
		CountryNames: map[string]string{"FI": "Finland"},
		Languages:    map[int64]map[string]struct{}{},
	}
}

func buildEngine(t *testing.T) *Engine {
	t.Helper()
	normalizer := suggest.NewNormalizer(suggest.NewCollator(""), true)
	e, err := New(nil, cache.New(100, true), workerpool.New(4, 4), nil, normalizer, 1000, []string{`\.png$`}, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	e.gen.Store(buildGeneration(t))
	return e
}

func TestNameSearchMatchesNameAndArea(t *testing.T) {
	e := buildEngine(t)

	results, err := e.NameSearch(context.Background(), "Kumpula,Helsinki", Options{Language: "en"})
	if err != nil {
		t.Fatalf("NameSearch returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("NameSearch(Kumpula,Helsinki) returned %d results, want 1: %+v", len(results), results)
	}
	if results[0].Area != "Helsinki" {
		t.Fatalf("result area = %q, want Helsinki", results[0].Area)
	}
}

func TestNameSearchRejectsForbiddenName(t *testing.T) {
	e := buildEngine(t)

	_, err := e.NameSearch(context.Background(), "Helsinki.png", Options{})
	if err == nil {
		t.Fatalf("NameSearch(Helsinki.png) succeeded, want forbidden-name error")
	}
	if !isForbidden(err) {
		t.Fatalf("NameSearch(Helsinki.png) error = %v, want ErrForbiddenName", err)
	}

	if _, err := e.NameSearch(context.Background(), "Helsinki", Options{}); err != nil {
		t.Fatalf("NameSearch(Helsinki) should succeed: %v", err)
	}
}

func isForbidden(err error) bool {
	appErr, ok := err.(*apperrors.AppError)
	return ok && appErr.Unwrap() == apperrors.ErrForbiddenName
}

func TestIDSearchFindsAndMisses(t *testing.T) {
	e := buildEngine(t)

	results, err := e.IDSearch(context.Background(), 200, Options{Language: "en"})
	if err != nil || len(results) != 1 || results[0].Name != "Kumpula" {
		t.Fatalf("IDSearch(200) = %+v, %v, want [Kumpula]", results, err)
	}

	results, err = e.IDSearch(context.Background(), 999, Options{})
	if err != nil || len(results) != 0 {
		t.Fatalf("IDSearch(999) = %+v, %v, want empty, no error", results, err)
	}
}

func TestLonLatSearchRanksBeforeTrimming(t *testing.T) {
	e := buildEngine(t)

	// Kumpula is nearest to the query point but has a lower priority than
	// FarPlace, which is also within the unbounded radius. Rank-then-trim
	// means the single returned result is the higher-priority FarPlace, not
	// the geographically nearest Kumpula.
	results, err := e.LonLatSearch(context.Background(), 24.9642, 60.2089, spatial.Unbounded, Options{Language: "en", ResultLimit: 1})
	if err != nil {
		t.Fatalf("LonLatSearch returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("LonLatSearch returned %d results, want 1", len(results))
	}
	if results[0].Name != "FarPlace" {
		t.Fatalf("LonLatSearch first result = %q, want FarPlace (rank-then-trim)", results[0].Name)
	}
}

func TestLonLatSearchTranslatesElevationAndDem(t *testing.T) {
	e := buildEngine(t)

	results, err := e.LonLatSearch(context.Background(), 24.9642, 60.2089, 1.0, Options{Language: "fi"})
	if err != nil {
		t.Fatalf("LonLatSearch returned error: %v", err)
	}
	if len(results) == 0 || results[0].Name != "Kumpula" {
		t.Fatalf("LonLatSearch with 1km radius = %+v, want Kumpula first", results)
	}
	if results[0].Elevation != 11 || results[0].Dem != 24 {
		t.Fatalf("Kumpula elevation/dem = %v/%v, want 11/24", results[0].Elevation, results[0].Dem)
	}
}

func TestKeywordSearchReturnsAllMembersOrderedByPriority(t *testing.T) {
	e := buildEngine(t)

	results, err := e.KeywordSearch(context.Background(), "city", Options{Language: "en"})
	if err != nil {
		t.Fatalf("KeywordSearch returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("KeywordSearch(city) returned %d results, want 3", len(results))
	}
	if results[0].Name != "FarPlace" || results[1].Name != "Kumpula" || results[2].Name != "Helsinki" {
		t.Fatalf("KeywordSearch(city) order = %v, want FarPlace, Kumpula, Helsinki (priority desc)", namesOf(results))
	}
}

func TestSortOrdersByPriorityDescending(t *testing.T) {
	e := buildEngine(t)
	locations := []geoname.Location{
		{Name: "low", Priority: 1},
		{Name: "high", Priority: 100},
		{Name: "mid", Priority: 50},
	}
	e.Sort(locations)
	if namesOf(locations)[0] != "high" || namesOf(locations)[2] != "low" {
		t.Fatalf("Sort order = %v, want high, mid, low", namesOf(locations))
	}
}

func TestCountryNameTranslates(t *testing.T) {
	e := buildEngine(t)
	gen := e.current()
	gen.Tables.Countries.Insert("Finland", "fi", "Suomi")

	if got := e.CountryName("FI", "fi"); got != "Suomi" {
		t.Fatalf("CountryName(FI, fi) = %q, want Suomi", got)
	}
	if got := e.CountryName("FI", "en"); got != "Finland" {
		t.Fatalf("CountryName(FI, en) = %q, want Finland (no translation, falls back to canonical)", got)
	}
}

func namesOf(locations []geoname.Location) []string {
	out := make([]string, len(locations))
	for i, loc := range locations {
		out[i] = loc.Name
	}
	return out
}
