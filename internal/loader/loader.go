package loader

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fmidev/geonames-engine/internal/demland"
	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/rank"
	"github.com/fmidev/geonames-engine/internal/spatial"
	"github.com/fmidev/geonames-engine/internal/suggest"
	"github.com/fmidev/geonames-engine/internal/translate"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// Loader runs the C1 SQL phase and the C5/C6/C7 index-building phase over a
// relational source, producing a Generation. A Loader is reused across
// reloads; it carries no per-generation state of its own.
type Loader struct {
	db         *sql.DB
	dem        *demland.Binding
	rankTables *rank.Tables

	strict            bool
	whereGeonames     string
	whereAltGeonames  string
	asciiAutocomplete bool
	removeUnderscores bool
	mock              bool
	collator          *suggest.Collator

	logger *slog.Logger
}

// Options configures a Loader. It mirrors the subset of config.Config the
// loader needs directly, keeping the package independent of the config
// package's full surface.
type Options struct {
	Strict                 bool
	WhereGeonames          string
	WhereAlternateGeonames string
	AsciiAutocomplete      bool
	RemoveUnderscores      bool
	Locale                 string
	// Mock restricts Load to the country and alternate-country SQL phases —
	// a lightweight generation for development and tests. The municipality,
	// place, alternate place name, keyword and ranking phases are skipped;
	// the spatial and suggest indices are built over the empty store.
	Mock bool
}

// New returns a Loader bound to db, using dem for DEM/LandCover resolution
// and rankTables for priority computation.
func New(db *sql.DB, dem *demland.Binding, rankTables *rank.Tables, opts Options) *Loader {
	return &Loader{
		db:                db,
		dem:               dem,
		rankTables:        rankTables,
		strict:            opts.Strict,
		whereGeonames:     opts.WhereGeonames,
		whereAltGeonames:  opts.WhereAlternateGeonames,
		asciiAutocomplete: opts.AsciiAutocomplete,
		removeUnderscores: opts.RemoveUnderscores,
		mock:              opts.Mock,
		collator:          suggest.NewCollator(opts.Locale),
		logger:            slog.Default().With("component", "loader"),
	}
}

// Fingerprint runs the fingerprint query alone, for autoreload's
// change-detection tick. It fails soft (returns 0, false, nil) unless
// strict mode is enabled, per the specification.
func (l *Loader) Fingerprint(ctx context.Context) (int64, bool, error) {
	var fp sql.NullInt64
	err := l.db.QueryRowContext(ctx, fingerprintQuery).Scan(&fp)
	if err != nil {
		if l.strict {
			return 0, false, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "fingerprint query failed: %v", err)
		}
		l.logger.Warn("fingerprint query failed, continuing without one", "error", err)
		return 0, false, nil
	}
	if !fp.Valid {
		return 0, false, nil
	}
	return fp.Int64, true, nil
}

// Load runs every loader phase and returns a fully built Generation. A
// non-nil error means the generation must be discarded by the caller; it
// never returns a partially usable Generation alongside an error.
func (l *Loader) Load(ctx context.Context) (*Generation, error) {
	gen := &Generation{
		Tables:       translate.NewTables(),
		CountryNames: make(map[string]string),
		Languages:    make(map[int64]map[string]struct{}),
	}

	fp, ok, err := l.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	gen.Fingerprint, gen.HasFingerprint = fp, ok

	isoToCountry, err := l.loadCountries(ctx, gen)
	if err != nil {
		return nil, err
	}
	if err := l.loadAlternateCountries(ctx, gen); err != nil {
		return nil, err
	}

	if l.mock {
		gen.Store = geoname.NewStore(0)
		gen.Store.Freeze()
		gen.Keywords = keyword.NewIndex()
		gen.Keywords.Freeze(gen.Store.All())
		l.buildSpatialIndex(gen)
		l.buildSuggestIndex(gen)
		return gen, nil
	}

	municipalityNames, err := l.loadMunicipalities(ctx, gen)
	if err != nil {
		return nil, err
	}
	if err := l.loadAlternateMunicipalities(ctx, gen); err != nil {
		return nil, err
	}

	gen.Store = geoname.NewStore(1 << 16)
	if err := l.loadPlaces(ctx, gen, isoToCountry, municipalityNames); err != nil {
		return nil, err
	}
	gen.Store.Freeze()

	if err := l.loadAlternatePlaceNames(ctx, gen); err != nil {
		return nil, err
	}

	gen.Keywords = keyword.NewIndex()
	if err := l.loadKeywords(ctx, gen); err != nil {
		return nil, err
	}
	gen.Keywords.Freeze(gen.Store.All())

	l.buildSpatialIndex(gen)
	l.buildSuggestIndex(gen)
	l.rankAll(gen)

	return gen, nil
}

// Warmstart completes a Generation restored from an on-disk snapshot
// (Store, Keywords, Tables, CountryNames, Languages, and Fingerprint
// already populated, Priority already set on every Location) by rebuilding
// the Spatial and Suggest indices in-process. Unlike Load, it never
// touches the database: both indices are pure functions of Store and
// Keywords, which is exactly what makes warm-starting worthwhile.
func (l *Loader) Warmstart(gen *Generation) *Generation {
	l.buildSpatialIndex(gen)
	l.buildSuggestIndex(gen)
	return gen
}

// loadCountries runs phase 2: iso2 -> canonical country name, PCLI winning
// over PCLD/PCLF for the same iso2 by virtue of the query's sort order and
// first-wins map population.
func (l *Loader) loadCountries(ctx context.Context, gen *Generation) (map[string]string, error) {
	rows, err := l.db.QueryContext(ctx, countriesQuery)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "countries query: %v", err)
	}
	defer rows.Close()

	isoToCountry := make(map[string]string)
	count := 0
	for rows.Next() {
		var geoid int64
		var iso2, name, featureCode string
		if err := rows.Scan(&geoid, &iso2, &name, &featureCode); err != nil {
			return nil, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning country row: %v", err)
		}
		if _, exists := isoToCountry[iso2]; !exists {
			isoToCountry[iso2] = name
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "countries rows: %v", err)
	}
	if count == 0 {
		if err := l.warnOrError("countries phase returned no rows"); err != nil {
			return nil, err
		}
	}
	for iso2, name := range isoToCountry {
		gen.CountryNames[iso2] = name
	}
	return isoToCountry, nil
}

// loadAlternateCountries runs phase 3: the country translation table, keyed
// by canonical country name.
func (l *Loader) loadAlternateCountries(ctx context.Context, gen *Generation) error {
	rows, err := l.db.QueryContext(ctx, alternateCountriesQuery)
	if err != nil {
		return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "alternate countries query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var countryName, language, alternateName string
		var isPreferred bool
		var altLen int
		if err := rows.Scan(&countryName, &language, &alternateName, &isPreferred, &altLen); err != nil {
			return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning alternate country row: %v", err)
		}
		gen.Tables.Countries.Insert(countryName, language, alternateName)
	}
	return rows.Err()
}

// loadMunicipalities runs phase 4: identifier -> name.
func (l *Loader) loadMunicipalities(ctx context.Context, gen *Generation) (map[int64]string, error) {
	rows, err := l.db.QueryContext(ctx, municipalitiesQuery)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "municipalities query: %v", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning municipality row: %v", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		if err := l.warnOrError("municipalities phase returned no rows"); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// loadAlternateMunicipalities runs phase 5: identifier -> (language -> name).
func (l *Loader) loadAlternateMunicipalities(ctx context.Context, gen *Generation) error {
	rows, err := l.db.QueryContext(ctx, alternateMunicipalitiesQuery)
	if err != nil {
		return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "alternate municipalities query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var municipalityID int64
		var language, name string
		var isPreferred bool
		var nameLen int
		if err := rows.Scan(&municipalityID, &language, &name, &isPreferred, &nameLen); err != nil {
			return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning alternate municipality row: %v", err)
		}
		gen.Tables.Municipalities.Insert(municipalityID, language, name)
	}
	return rows.Err()
}

// loadPlaces runs phase 6: the main location rows, resolving area, DEM, and
// land cover and discarding rows with a null timezone.
func (l *Loader) loadPlaces(ctx context.Context, gen *Generation, isoToCountry map[string]string, municipalityNames map[int64]string) error {
	query := placesQueryBase
	if l.whereGeonames != "" {
		query += " WHERE " + l.whereGeonames
	}
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "places query: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var geoid int64
		var name, iso2, featureCode string
		var municipalityID sql.NullInt64
		var longitude, latitude float64
		var population int64
		var timezone sql.NullString
		var elevation, dem sql.NullFloat64
		var landcover sql.NullString

		if err := rows.Scan(&geoid, &name, &iso2, &municipalityID, &featureCode,
			&longitude, &latitude, &population, &timezone, &elevation, &dem, &landcover); err != nil {
			return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning place row: %v", err)
		}

		if !timezone.Valid || timezone.String == "" {
			l.logger.Warn("discarding place with null timezone", "geoid", geoid, "name", name)
			continue
		}

		loc := geoname.NewLocation(geoid, name)
		loc.ISO2 = iso2
		loc.Feature = geoname.Feature(featureCode)
		loc.Longitude = longitude
		loc.Latitude = latitude
		loc.Population = population
		loc.Timezone = timezone.String
		if municipalityID.Valid {
			loc.Municipality = municipalityID.Int64
		}
		loc.Area = resolveArea(loc, municipalityNames, isoToCountry)

		if elevation.Valid {
			loc.Elevation = elevation.Float64
		} else if l.dem != nil {
			loc.Elevation = l.dem.Elevation(ctx, longitude, latitude)
		}
		if dem.Valid {
			loc.Dem = dem.Float64
		} else if l.dem != nil {
			loc.Dem = l.dem.Elevation(ctx, longitude, latitude)
		}
		if landcover.Valid && landcover.String != "" {
			loc.CoverType = geoname.CoverType(landcover.String)
		} else if l.dem != nil {
			loc.CoverType = l.dem.CoverType(ctx, longitude, latitude)
		}

		gen.Store.Append(loc)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return l.warnOrError("places phase returned no rows")
	}
	return nil
}

// resolveArea composes the area string: municipality name if present, else
// the country name. No "<admin1>, " prefix is added for US rows: the places
// query reads no admin1 column, so US rows get the country name like any
// other country.
func resolveArea(loc geoname.Location, municipalityNames map[int64]string, isoToCountry map[string]string) string {
	if loc.Municipality != 0 {
		if name, ok := municipalityNames[loc.Municipality]; ok {
			return name
		}
	}
	return isoToCountry[loc.ISO2]
}

// loadAlternatePlaceNames runs phase 8: geoid -> (language -> name),
// discarding translations identical to the canonical name.
func (l *Loader) loadAlternatePlaceNames(ctx context.Context, gen *Generation) error {
	query := alternatePlaceNamesQueryBase
	if l.whereAltGeonames != "" {
		query += " WHERE " + l.whereAltGeonames
	}
	query += " " + alternatePlaceNamesOrder

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "alternate place names query: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var geoid int64
		var language, alternateName string
		var isPreferred bool
		var altLen int
		if err := rows.Scan(&geoid, &language, &alternateName, &isPreferred, &altLen); err != nil {
			return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning alternate place name row: %v", err)
		}
		ref, ok := gen.Store.Lookup(geoid)
		if !ok {
			continue
		}
		if alternateName == gen.Store.Get(ref).Name {
			continue
		}
		gen.Tables.PlaceNames.Insert(geoid, language, alternateName)
		langs, ok := gen.Languages[geoid]
		if !ok {
			langs = make(map[string]struct{})
			gen.Languages[geoid] = langs
		}
		langs[strings.ToLower(language)] = struct{}{}
	}
	return rows.Err()
}

// loadKeywords runs phase 9: appends every (keyword, geoid) membership,
// logging unknown geoids instead of failing the load.
func (l *Loader) loadKeywords(ctx context.Context, gen *Generation) error {
	rows, err := l.db.QueryContext(ctx, keywordsQuery)
	if err != nil {
		return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "keywords query: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var kw string
		var geoid int64
		if err := rows.Scan(&kw, &geoid); err != nil {
			return apperrors.Newf(apperrors.ErrDataSource, http.StatusServiceUnavailable, "scanning keyword row: %v", err)
		}
		ref, ok := gen.Store.Lookup(geoid)
		if !ok {
			l.logger.Warn("keyword references unknown geoid", "keyword", kw, "geoid", geoid)
			continue
		}
		gen.Keywords.Add(kw, ref)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return l.warnOrError("keywords phase returned no rows")
	}
	return nil
}

// buildSpatialIndex builds §4.C5: one nearest-neighbour tree per keyword
// (including the synthetic "all" keyword), over that keyword's members.
func (l *Loader) buildSpatialIndex(gen *Generation) {
	keywords := gen.Keywords.Keywords()
	gen.Spatial = make(map[string]*spatial.Index, len(keywords))
	for _, kw := range keywords {
		refs, ok := gen.Keywords.Members(kw)
		if !ok {
			continue
		}
		b := spatial.NewBuilder()
		for _, ref := range refs {
			loc := gen.Store.Get(ref)
			b.Add(ref, loc.Longitude, loc.Latitude)
		}
		gen.Spatial[kw] = b.Build()
	}
}

// buildSuggestIndex builds §4.C6: the canonical and per-language tries over
// every keyword's members.
func (l *Loader) buildSuggestIndex(gen *Generation) {
	normalizer := suggest.NewNormalizer(l.collator, l.removeUnderscores)
	b := suggest.NewBuilder(normalizer, l.asciiAutocomplete)

	for _, kw := range gen.Keywords.Keywords() {
		refs, ok := gen.Keywords.Members(kw)
		if !ok {
			continue
		}
		for _, ref := range refs {
			loc := gen.Store.Get(ref)
			b.AddCanonical(kw, ref, loc.Name, loc.Area, loc.Geoid)

			for language := range gen.Languages[loc.Geoid] {
				translated, ok := gen.Tables.PlaceNames.Lookup(loc.Geoid, language)
				if !ok {
					continue
				}
				b.AddLanguage(language, kw, ref, translated, loc.Area, loc.Geoid)
			}
		}
	}

	idx := b.Build()
	idx.MarkReady()
	gen.Suggest = idx
}

// rankAll runs §4.C7 over every location once, writing Priority in place
// before the generation is published.
func (l *Loader) rankAll(gen *Generation) {
	for _, ref := range gen.Store.All() {
		loc := gen.Store.Get(ref)
		priority := rank.Rank(loc, l.rankTables)
		gen.Store.SetPriority(ref, priority)
	}
}

// warnOrError turns an empty-phase warning into a hard error under strict
// mode, matching the specification's "empty result set" escalation rule.
func (l *Loader) warnOrError(message string) error {
	if l.strict {
		return apperrors.New(apperrors.ErrDataSource, http.StatusServiceUnavailable, message)
	}
	l.logger.Warn(message)
	return nil
}
