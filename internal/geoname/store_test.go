package geoname

import "testing"

func TestStoreAppendAndLookup(t *testing.T) {
	s := NewStore(4)
	ref := s.Append(NewLocation(100, "Helsinki"))
	s.Append(NewLocation(101, "Imatra"))
	s.Freeze()

	if got := s.Get(ref).Name; got != "Helsinki" {
		t.Fatalf("Get(ref).Name = %q, want Helsinki", got)
	}

	foundRef, ok := s.Lookup(101)
	if !ok {
		t.Fatalf("Lookup(101) not found")
	}
	if got := s.Get(foundRef).Name; got != "Imatra" {
		t.Fatalf("Lookup(101).Name = %q, want Imatra", got)
	}

	if _, ok := s.Lookup(999); ok {
		t.Fatalf("Lookup(999) unexpectedly found")
	}

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if len(s.All()) != 2 {
		t.Fatalf("All() length = %d, want 2", len(s.All()))
	}
}

func TestStoreAppendPanicsOnDuplicateGeoid(t *testing.T) {
	s := NewStore(2)
	s.Append(NewLocation(1, "a"))
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate geoid")
		}
	}()
	s.Append(NewLocation(1, "b"))
}

func TestStoreAppendPanicsAfterFreeze(t *testing.T) {
	s := NewStore(1)
	s.Freeze()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on Append after Freeze")
		}
	}()
	s.Append(NewLocation(1, "a"))
}

func TestLocationSentinels(t *testing.T) {
	loc := NewLocation(1, "a")
	if loc.HasElevation() {
		t.Fatalf("new location should have no elevation")
	}
	if loc.HasDem() {
		t.Fatalf("new location should have no dem")
	}
	if loc.CoverType != NoCover {
		t.Fatalf("new location should have NoCover cover type")
	}
}
