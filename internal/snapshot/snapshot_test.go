package snapshot

import (
	"os"
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/loader"
	"github.com/fmidev/geonames-engine/internal/translate"
)

func buildTestGeneration(t *testing.T) *loader.Generation {
	t.Helper()

	store := geoname.NewStore(2)
	helsinki := geoname.NewLocation(100, "Helsinki")
	helsinki.ISO2, helsinki.Area = "FI", "Helsinki"
	helsinki.Longitude, helsinki.Latitude = 24.9384, 60.1699
	helsinki.Priority = 50
	helsinkiRef := store.Append(helsinki)
	store.Freeze()

	kwIdx := keyword.NewIndex()
	kwIdx.Add("city", helsinkiRef)
	kwIdx.Freeze(store.All())

	tables := translate.NewTables()
	tables.Countries.Insert("Finland", "fi", "Suomi")
	tables.PlaceNames.Insert(100, "fi", "Helsingin kaupunki")

	return &loader.Generation{
		Store:          store,
		Keywords:       kwIdx,
		Tables:         tables,
		CountryNames:   map[string]string{"FI": "Finland"},
		Languages:      map[int64]map[string]struct{}{100: {"fi": {}}},
		Fingerprint:    42,
		HasFingerprint: true,
	}
}

func TestWriteRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	gen := buildTestGeneration(t)

	path, err := Write(gen, dir)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	restored, err := Restore(path)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	if restored.Fingerprint != 42 || !restored.HasFingerprint {
		t.Fatalf("restored fingerprint = %d/%v, want 42/true", restored.Fingerprint, restored.HasFingerprint)
	}
	if restored.Store.Len() != 1 {
		t.Fatalf("restored store length = %d, want 1", restored.Store.Len())
	}
	ref, ok := restored.Store.Lookup(100)
	if !ok || restored.Store.Get(ref).Name != "Helsinki" {
		t.Fatalf("restored store missing Helsinki at geoid 100")
	}
	refs, ok := restored.Keywords.Members("city")
	if !ok || len(refs) != 1 {
		t.Fatalf("restored keyword membership = %v/%v, want 1 member", refs, ok)
	}
	if got := restored.Tables.CountryName("Finland", "fi"); got != "Suomi" {
		t.Fatalf("restored Countries table lookup = %q, want Suomi", got)
	}
	if got, ok := restored.Tables.PlaceNames.Lookup(100, "fi"); !ok || got != "Helsingin kaupunki" {
		t.Fatalf("restored PlaceNames lookup = %q/%v, want Helsingin kaupunki/true", got, ok)
	}
	if _, ok := restored.Languages[100]["fi"]; !ok {
		t.Fatalf("restored Languages missing geoid 100 -> fi")
	}
}

func TestWarmstartRebuildsSpatialAndSuggest(t *testing.T) {
	dir := t.TempDir()
	gen := buildTestGeneration(t)

	path, err := Write(gen, dir)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	restored, err := Restore(path)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	ld := loader.New(nil, nil, nil, loader.Options{})
	complete := ld.Warmstart(restored)

	if complete.Spatial == nil || complete.Spatial["city"] == nil {
		t.Fatalf("Warmstart did not rebuild the spatial index for keyword city")
	}
	if complete.Suggest == nil || !complete.Suggest.Ready() {
		t.Fatalf("Warmstart did not rebuild a ready suggest index")
	}
}

func TestRestoreRejectsCorruptedChecksum(t *testing.T) {
	dir := t.TempDir()
	gen := buildTestGeneration(t)

	path, err := Write(gen, dir)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot file: %v", err)
	}
	// Flip a byte in the middle of the JSON payload, after the header.
	data[HeaderSize+5] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing corrupted snapshot file: %v", err)
	}

	if _, err := Restore(path); err == nil {
		t.Fatalf("Restore should fail checksum validation on a corrupted file")
	}
}

func TestRestoreRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bogus.gnsnap"
	if err := os.WriteFile(path, make([]byte, HeaderSize+FooterSize+4), 0o644); err != nil {
		t.Fatalf("writing bogus snapshot file: %v", err)
	}

	if _, err := Restore(path); err == nil {
		t.Fatalf("Restore should reject a file with no valid magic bytes")
	}
}
