package wkt

import (
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

func TestPointFormatsCoordinates(t *testing.T) {
	loc := geoname.NewLocation(1, "Helsinki")
	loc.Longitude, loc.Latitude = 24.9384, 60.1699

	got := Point(loc)
	want := "POINT(24.938400 60.169900)"
	if got != want {
		t.Fatalf("Point() = %q, want %q", got, want)
	}
}

func TestMultiPointJoinsAllLocations(t *testing.T) {
	a := geoname.NewLocation(1, "A")
	a.Longitude, a.Latitude = 1.0, 2.0
	b := geoname.NewLocation(2, "B")
	b.Longitude, b.Latitude = 3.5, 4.25

	got := MultiPoint([]geoname.Location{a, b})
	want := "MULTIPOINT(1.000000 2.000000, 3.500000 4.250000)"
	if got != want {
		t.Fatalf("MultiPoint() = %q, want %q", got, want)
	}
}

func TestMultiPointEmpty(t *testing.T) {
	if got := MultiPoint(nil); got != "MULTIPOINT EMPTY" {
		t.Fatalf("MultiPoint(nil) = %q, want MULTIPOINT EMPTY", got)
	}
}

func TestGeometryChoosesPointForSingleLocation(t *testing.T) {
	loc := geoname.NewLocation(1, "Solo")
	loc.Longitude, loc.Latitude = 10, 20

	got := Geometry([]geoname.Location{loc})
	want := "POINT(10.000000 20.000000)"
	if got != want {
		t.Fatalf("Geometry([1 location]) = %q, want %q", got, want)
	}
}

func TestGeometryChoosesMultiPointForSeveralLocations(t *testing.T) {
	a := geoname.NewLocation(1, "A")
	b := geoname.NewLocation(2, "B")

	got := Geometry([]geoname.Location{a, b})
	if got[:10] != "MULTIPOINT" {
		t.Fatalf("Geometry([2 locations]) = %q, want it to start with MULTIPOINT", got)
	}
}

func TestGeometryEmptySlice(t *testing.T) {
	if got := Geometry(nil); got != "MULTIPOINT EMPTY" {
		t.Fatalf("Geometry(nil) = %q, want MULTIPOINT EMPTY", got)
	}
}
