package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fmidev/geonames-engine/internal/engine"
	"github.com/fmidev/geonames-engine/internal/geoname"
)

// fakeEngine implements queryEngine for handler tests, without a loaded
// dataset or database.
type fakeEngine struct {
	nameSearchResult []geoname.Location
	idSearchResult   []geoname.Location
	lonLatResult     []geoname.Location
	keywordResult    []geoname.Location
}

func (f *fakeEngine) NameSearch(ctx context.Context, name string, opts engine.Options) ([]geoname.Location, error) {
	return f.nameSearchResult, nil
}
func (f *fakeEngine) IDSearch(ctx context.Context, geoid int64, opts engine.Options) ([]geoname.Location, error) {
	return f.idSearchResult, nil
}
func (f *fakeEngine) LonLatSearch(ctx context.Context, lon, lat, radiusKm float64, opts engine.Options) ([]geoname.Location, error) {
	return f.lonLatResult, nil
}
func (f *fakeEngine) KeywordSearch(ctx context.Context, kw string, opts engine.Options) ([]geoname.Location, error) {
	return f.keywordResult, nil
}
func (f *fakeEngine) Nearest(ctx context.Context, lon, lat, radiusKm float64, language, kw string) (*geoname.Location, error) {
	return nil, nil
}
func (f *fakeEngine) FeatureSearch(ctx context.Context, lon, lat, radiusKm float64, language string, features []geoname.Feature) geoname.Location {
	return geoname.NewLocation(0, "")
}

func helsinkiLocation() geoname.Location {
	loc := geoname.NewLocation(100, "Helsinki")
	loc.Longitude, loc.Latitude = 24.9384, 60.1699
	return loc
}

func TestQueryDispatchesNameSearch(t *testing.T) {
	fe := &fakeEngine{nameSearchResult: []geoname.Location{helsinkiLocation()}}
	h := New(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/geonames?place=Helsinki", nil)
	w := httptest.NewRecorder()
	h.Query(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Results []result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Results) != 1 || len(body.Results[0].Locations) != 1 {
		t.Fatalf("Results = %+v, want 1 result with 1 location", body.Results)
	}
	if body.Results[0].Locations[0].Name != "Helsinki" {
		t.Fatalf("location name = %q, want Helsinki", body.Results[0].Locations[0].Name)
	}
}

func TestQueryAttachesWKTWhenRequested(t *testing.T) {
	fe := &fakeEngine{nameSearchResult: []geoname.Location{helsinkiLocation()}}
	h := New(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/geonames?place=Helsinki&wkt", nil)
	w := httptest.NewRecorder()
	h.Query(w, req)

	var body struct {
		Results []result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Results[0].WKT == "" {
		t.Fatalf("expected WKT geometry to be attached when ?wkt is present")
	}
}

func TestQueryGeoidDispatchesIDSearch(t *testing.T) {
	fe := &fakeEngine{idSearchResult: []geoname.Location{helsinkiLocation()}}
	h := New(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/geonames?geoid=100", nil)
	w := httptest.NewRecorder()
	h.Query(w, req)

	var body struct {
		Results []result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Tag != "geoid" {
		t.Fatalf("Results = %+v, want a single geoid-tagged result", body.Results)
	}
}

func TestQueryRejectsMalformedPath(t *testing.T) {
	fe := &fakeEngine{}
	h := New(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/geonames?path=24.9%2C+60.2", nil)
	w := httptest.NewRecorder()
	h.Query(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a path containing a space", w.Code)
	}
}

func TestFilterByIdentifierMatchesFMISID(t *testing.T) {
	a := helsinkiLocation()
	a.FMISID = 100971
	b := helsinkiLocation()
	b.FMISID = 999

	out := filterByIdentifier([]geoname.Location{a, b}, []int64{100971})
	if len(out) != 1 || out[0].FMISID != 100971 {
		t.Fatalf("filterByIdentifier = %+v, want only the 100971 entry", out)
	}
}
