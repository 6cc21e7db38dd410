package spatial

import (
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

func TestNearestUnboundedOrdersByDistance(t *testing.T) {
	b := NewBuilder()
	b.Add(geoname.Ref(0), 24.9384, 60.1699) // Helsinki
	b.Add(geoname.Ref(1), 28.1897, 61.1719) // Imatra-ish
	b.Add(geoname.Ref(2), 24.4536, 60.4518) // Espoo-ish
	idx := b.Build()

	got := idx.Nearest(24.9642, 60.2089, Unbounded, 0) // near Helsinki/Kumpula
	if len(got) != 3 {
		t.Fatalf("Nearest returned %d refs, want 3", len(got))
	}
	if got[0] != geoname.Ref(0) {
		t.Fatalf("nearest = %v, want Helsinki ref 0", got[0])
	}
}

func TestNearestRadiusExcludesFarCandidates(t *testing.T) {
	b := NewBuilder()
	b.Add(geoname.Ref(0), 24.9384, 60.1699) // Helsinki
	b.Add(geoname.Ref(1), 28.1897, 61.1719) // far away
	idx := b.Build()

	got := idx.Nearest(24.9642, 60.2089, 20, 0)
	if len(got) != 1 || got[0] != geoname.Ref(0) {
		t.Fatalf("Nearest(radius=20) = %v, want [0]", got)
	}
}

func TestNearestEmptyIndex(t *testing.T) {
	idx := NewBuilder().Build()
	if got := idx.Nearest(0, 0, Unbounded, 0); got != nil {
		t.Fatalf("Nearest on empty index = %v, want nil", got)
	}
}

func TestNearestLimit(t *testing.T) {
	b := NewBuilder()
	b.Add(geoname.Ref(0), 24.9384, 60.1699)
	b.Add(geoname.Ref(1), 24.9400, 60.1700)
	b.Add(geoname.Ref(2), 24.9500, 60.1800)
	idx := b.Build()

	got := idx.Nearest(24.9384, 60.1699, Unbounded, 2)
	if len(got) != 2 {
		t.Fatalf("Nearest with limit=2 returned %d", len(got))
	}
}
