package loader

// SQL for the logical schema named in the specification: geonames,
// alternate_geonames, municipalities, alternate_municipalities,
// keywords_has_geonames, plus the implicit country rows found inside
// geonames itself (feature_code in {PCLD,PCLF,PCLI}).
//
// Queries are written in portable ANSI SQL (CASE, length, standard
// comparisons) so the same loader runs unmodified against the production
// Postgres source and an in-memory sqlite fixture in tests.

const fingerprintQuery = `
SELECT MAX(ts) FROM (
	SELECT MAX(last_modified) AS ts FROM geonames
	UNION ALL
	SELECT MAX(last_modified) AS ts FROM alternate_geonames
	UNION ALL
	SELECT MAX(last_modified) AS ts FROM municipalities
) t`

const countriesQuery = `
SELECT geoid, iso2, name, feature_code
FROM geonames
WHERE feature_code IN ('PCLD', 'PCLF', 'PCLI')
ORDER BY CASE feature_code
	WHEN 'PCLI' THEN 0
	WHEN 'PCLF' THEN 1
	ELSE 2
END`

const alternateCountriesQuery = `
SELECT g.name AS country_name, a.language, a.alternate_name, a.is_preferred, length(a.alternate_name) AS alt_len
FROM alternate_geonames a
INNER JOIN geonames g ON g.geoid = a.geoid
WHERE g.feature_code IN ('PCLD', 'PCLF', 'PCLI')
ORDER BY a.is_preferred DESC, alt_len ASC, a.alternate_name ASC`

const municipalitiesQuery = `
SELECT id, name FROM municipalities`

const alternateMunicipalitiesQuery = `
SELECT municipality_id, language, name, is_preferred, length(name) AS name_len
FROM alternate_municipalities
ORDER BY is_preferred DESC, name_len ASC, name ASC`

const placesQueryBase = `
SELECT DISTINCT g.geoid, g.name, g.iso2, g.municipality_id, g.feature_code,
	g.longitude, g.latitude, g.population, g.timezone, g.elevation, g.dem, g.landcover
FROM geonames g
INNER JOIN keywords_has_geonames k ON k.geoid = g.geoid`

const alternatePlaceNamesQueryBase = `
SELECT geoid, language, alternate_name, is_preferred, length(alternate_name) AS alt_len
FROM alternate_geonames`

const alternatePlaceNamesOrder = `
ORDER BY is_preferred DESC, alt_len ASC, alternate_name ASC`

const keywordsQuery = `
SELECT keyword, geoid FROM keywords_has_geonames ORDER BY keyword, geoid`
