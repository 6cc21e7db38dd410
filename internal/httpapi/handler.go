package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fmidev/geonames-engine/internal/engine"
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/telemetry"
	"github.com/fmidev/geonames-engine/internal/wkt"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// queryEngine is the subset of *engine.Engine the public query handler
// depends on, narrowed to an interface so tests can exercise dispatch and
// response formatting without a fully loaded dataset.
type queryEngine interface {
	NameSearch(ctx context.Context, name string, opts engine.Options) ([]geoname.Location, error)
	IDSearch(ctx context.Context, geoid int64, opts engine.Options) ([]geoname.Location, error)
	LonLatSearch(ctx context.Context, lon, lat, radiusKm float64, opts engine.Options) ([]geoname.Location, error)
	KeywordSearch(ctx context.Context, kw string, opts engine.Options) ([]geoname.Location, error)
	Nearest(ctx context.Context, lon, lat, radiusKm float64, language, kw string) (*geoname.Location, error)
	FeatureSearch(ctx context.Context, lon, lat, radiusKm float64, language string, features []geoname.Feature) geoname.Location
}

// reloader is the subset of *engine.Engine the admin reload endpoint needs.
type reloader interface {
	Reload(ctx context.Context) error
}

// result pairs one resolved tag with the locations it produced, so a
// multi-tag request (e.g. "place=Kumpula&lonlat=24.9,60.2") can report
// which part of the query each result came from.
type result struct {
	Tag       string             `json:"tag"`
	Locations []geoname.Location `json:"locations"`
	WKT       string             `json:"wkt,omitempty"`
}

// Handler implements the C8 query front-end's public HTTP surface.
type Handler struct {
	engine    queryEngine
	collector *telemetry.Collector
	logger    *slog.Logger
}

// New builds a Handler. collector may be nil, in which case query events
// are simply not published (matching how telemetry.Collector already
// degrades: TrackQuery on a nil Collector would panic, so httpapi guards
// the call itself rather than pushing that nil-check into telemetry).
func New(eng queryEngine, collector *telemetry.Collector) *Handler {
	return &Handler{
		engine:    eng,
		collector: collector,
		logger:    slog.Default().With("component", "httpapi"),
	}
}

// Query handles GET /geonames, the query-parameter front-end described by
// the specification. It resolves every recognized tag into engine calls,
// aggregates the results, and optionally attaches WKT geometry.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	p, err := parseQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := engine.Options{Language: p.Lang, Keyword: p.Keyword}
	var results []result

	for _, nq := range p.Names {
		start := time.Now()
		locations, err := h.engine.NameSearch(r.Context(), nq.Pattern, opts)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		h.trackQuery("name_search", nq.Pattern, len(locations), start)
		results = append(results, h.buildResult(nq.Tag, locations, p.WKT))
	}

	if len(p.Geoids) > 0 {
		var locations []geoname.Location
		start := time.Now()
		for _, geoid := range p.Geoids {
			loc, err := h.engine.IDSearch(r.Context(), geoid, opts)
			if err != nil {
				h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
				return
			}
			locations = append(locations, loc...)
		}
		h.trackQuery("id_search", "", len(locations), start)
		results = append(results, h.buildResult("geoid", locations, p.WKT))
	}

	if p.Keyword2 != "" {
		start := time.Now()
		locations, err := h.engine.KeywordSearch(r.Context(), p.Keyword2, opts)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		h.trackQuery("keyword_search", p.Keyword2, len(locations), start)
		results = append(results, h.buildResult("keyword", locations, p.WKT))
	}

	for _, cq := range p.Coords {
		radius := cq.RadiusKm
		if !cq.HasRadius {
			radius = p.MaxDistance
		}
		start := time.Now()

		if len(p.Features) > 0 {
			loc := h.engine.FeatureSearch(r.Context(), cq.Lon, cq.Lat, radius, p.Lang, p.Features)
			h.trackQuery("nearest", "", 1, start)
			results = append(results, h.buildResult("lonlat", []geoname.Location{loc}, p.WKT))
			continue
		}

		locations, err := h.engine.LonLatSearch(r.Context(), cq.Lon, cq.Lat, radius, opts)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		h.trackQuery("lonlat_search", "", len(locations), start)
		results = append(results, h.buildResult("lonlat", locations, p.WKT))
	}

	for tag, ids := range p.Identifiers {
		scope := p.Keyword
		if scope == "" {
			scope = "all"
		}
		start := time.Now()
		members, err := h.engine.KeywordSearch(r.Context(), scope, opts)
		if err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		locations := filterByIdentifier(members, ids)
		h.trackQuery("keyword_search", tag, len(locations), start)
		results = append(results, h.buildResult(tag, locations, p.WKT))
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// buildResult assembles one tagged result, attaching a WKT geometry string
// when the caller requested ?wkt.
func (h *Handler) buildResult(tag string, locations []geoname.Location, withWKT bool) result {
	r := result{Tag: tag, Locations: locations}
	if withWKT && len(locations) > 0 {
		r.WKT = wkt.Geometry(locations)
	}
	return r
}

// trackQuery reports one resolved sub-query to telemetry, if a collector is
// configured; a nil collector means telemetry is disabled, not an error.
func (h *Handler) trackQuery(operation, pattern string, resultSize int, start time.Time) {
	if h.collector == nil {
		return
	}
	h.collector.TrackQuery(telemetry.QueryEvent{
		Type:       queryEventType(operation),
		Operation:  operation,
		Pattern:    pattern,
		ResultSize: resultSize,
		LatencyMs:  time.Since(start).Milliseconds(),
	})
}

// queryEventType maps an engine operation name to the closest telemetry
// event type; operations with no dedicated constant (id_search,
// lonlat_search, keyword_search) are reported under EventQuerySearch.
func queryEventType(operation string) telemetry.EventType {
	switch operation {
	case "nearest":
		return telemetry.EventQueryNearest
	case "name_search":
		return telemetry.EventQuerySuggest
	default:
		return telemetry.EventQuerySearch
	}
}

// filterByIdentifier returns the members whose FMISID-style front-end
// annotation matches one of ids. fmisid/lpnn/wmo all resolve against the
// same Location.FMISID field: the location record carries one generic
// numeric station-identifier annotation (per §4's front-end-annotations
// note), not three independent ones.
func filterByIdentifier(members []geoname.Location, ids []int64) []geoname.Location {
	var out []geoname.Location
	for _, loc := range members {
		for _, id := range ids {
			if loc.FMISID == id {
				out = append(out, loc)
				break
			}
		}
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
