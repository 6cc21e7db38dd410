// Package mockcorpus builds a tiny in-memory relational source for the
// engine's mock mode, standing in for a live Postgres connection. It defines
// GORM models over the same logical schema internal/loader queries
// (geonames, alternate_geonames, municipalities, alternate_municipalities,
// keywords_has_geonames), migrates them into a sqlite3 database, and seeds a
// handful of countries and places — enough for a --mock geonamesd run or a
// package test to exercise the full load pipeline without any external
// dependency.
//
// Grounded on rgglez-geonames-loader's GORM-over-geonames-schema approach
// (examples/go/main.go's GeonameResult/PostalResult models), adapted from a
// read-only reverse-geocoding query tool into a small seedable fixture.
package mockcorpus

import (
	"database/sql"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Geoname mirrors the geonames table's columns the loader's SQL phases read.
type Geoname struct {
	Geoid          int64  `gorm:"column:geoid;primaryKey"`
	Name           string `gorm:"column:name"`
	ISO2           string `gorm:"column:iso2"`
	MunicipalityID int64  `gorm:"column:municipality_id"`
	FeatureCode    string `gorm:"column:feature_code"`
	Longitude      float64
	Latitude       float64
	Population     int64
	Timezone       string
	Elevation      float64
	Dem            float64
	Landcover      string
	LastModified   int64 `gorm:"column:last_modified"`
}

func (Geoname) TableName() string { return "geonames" }

// AlternateGeoname mirrors alternate_geonames.
type AlternateGeoname struct {
	Geoid         int64  `gorm:"column:geoid"`
	Language      string `gorm:"column:language"`
	AlternateName string `gorm:"column:alternate_name"`
	IsPreferred   bool   `gorm:"column:is_preferred"`
	LastModified  int64  `gorm:"column:last_modified"`
}

func (AlternateGeoname) TableName() string { return "alternate_geonames" }

// Municipality mirrors municipalities.
type Municipality struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

func (Municipality) TableName() string { return "municipalities" }

// AlternateMunicipality mirrors alternate_municipalities.
type AlternateMunicipality struct {
	MunicipalityID int64  `gorm:"column:municipality_id"`
	Language       string `gorm:"column:language"`
	Name           string `gorm:"column:name"`
	IsPreferred    bool   `gorm:"column:is_preferred"`
}

func (AlternateMunicipality) TableName() string { return "alternate_municipalities" }

// KeywordGeoname mirrors keywords_has_geonames, the per-keyword membership
// join the loader's place and keyword phases both read.
type KeywordGeoname struct {
	Keyword string `gorm:"column:keyword"`
	Geoid   int64  `gorm:"column:geoid"`
}

func (KeywordGeoname) TableName() string { return "keywords_has_geonames" }

// Open migrates and seeds an in-memory sqlite database and returns its
// underlying *sql.DB, ready to pass to loader.New in place of a Postgres
// connection.
func Open() (*sql.DB, error) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&Geoname{}, &AlternateGeoname{}, &Municipality{}, &AlternateMunicipality{}, &KeywordGeoname{}); err != nil {
		return nil, err
	}
	if err := seed(gdb); err != nil {
		return nil, err
	}
	return gdb.DB()
}

// seed populates the fixture with two countries, their capitals, and enough
// alternate names and keyword membership rows to exercise every loader
// phase (countries, alternate countries, municipalities, places, alternate
// place names, keywords).
func seed(db *gorm.DB) error {
	now := seedTimestamp()

	countries := []Geoname{
		{Geoid: 1, Name: "Finland", ISO2: "FI", FeatureCode: "PCLI", Longitude: 26.0, Latitude: 64.0, Population: 5500000, Timezone: "Europe/Helsinki", LastModified: now},
		{Geoid: 2, Name: "Sweden", ISO2: "SE", FeatureCode: "PCLI", Longitude: 16.0, Latitude: 62.0, Population: 10400000, Timezone: "Europe/Stockholm", LastModified: now},
	}
	if err := db.Create(&countries).Error; err != nil {
		return err
	}

	municipalities := []Municipality{
		{ID: 100, Name: "Helsinki"},
		{ID: 200, Name: "Stockholm"},
	}
	if err := db.Create(&municipalities).Error; err != nil {
		return err
	}

	places := []Geoname{
		{Geoid: 11, Name: "Helsinki", ISO2: "FI", MunicipalityID: 100, FeatureCode: "PPLC", Longitude: 24.9384, Latitude: 60.1699, Population: 658864, Timezone: "Europe/Helsinki", LastModified: now},
		{Geoid: 12, Name: "Tampere", ISO2: "FI", MunicipalityID: 100, FeatureCode: "PPLA", Longitude: 23.7610, Latitude: 61.4978, Population: 244223, Timezone: "Europe/Helsinki", LastModified: now},
		{Geoid: 21, Name: "Stockholm", ISO2: "SE", MunicipalityID: 200, FeatureCode: "PPLC", Longitude: 18.0686, Latitude: 59.3293, Population: 975551, Timezone: "Europe/Stockholm", LastModified: now},
	}
	if err := db.Create(&places).Error; err != nil {
		return err
	}

	alternates := []AlternateGeoname{
		{Geoid: 11, Language: "sv", AlternateName: "Helsingfors", IsPreferred: true, LastModified: now},
		{Geoid: 1, Language: "fi", AlternateName: "Suomi", IsPreferred: true, LastModified: now},
	}
	if err := db.Create(&alternates).Error; err != nil {
		return err
	}

	keywords := []KeywordGeoname{
		{Keyword: "all", Geoid: 11},
		{Keyword: "all", Geoid: 12},
		{Keyword: "all", Geoid: 21},
		{Keyword: "capitals", Geoid: 11},
		{Keyword: "capitals", Geoid: 21},
	}
	return db.Create(&keywords).Error
}

// seedTimestamp is a fixed Unix time rather than time.Now(): the fixture
// must be deterministic across runs so fingerprint-based reload tests are
// reproducible.
func seedTimestamp() int64 {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
}
