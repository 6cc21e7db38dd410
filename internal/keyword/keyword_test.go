package keyword

import (
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

func TestIndexMembersAndMissingKeyword(t *testing.T) {
	idx := NewIndex()
	idx.Add("mareografit", geoname.Ref(1))
	idx.Add("mareografit", geoname.Ref(2))

	members, ok := idx.Members("mareografit")
	if !ok || len(members) != 2 {
		t.Fatalf("Members(mareografit) = %v, %v; want 2 refs", members, ok)
	}

	members, ok = idx.Members("does-not-exist")
	if ok || members != nil {
		t.Fatalf("Members(missing) = %v, %v; want nil, false", members, ok)
	}
}

func TestIndexFreezeAll(t *testing.T) {
	idx := NewIndex()
	all := []geoname.Ref{0, 1, 2}
	idx.Freeze(all)

	members, ok := idx.Members(All)
	if !ok || len(members) != 3 {
		t.Fatalf("Members(all) = %v, %v; want 3 refs", members, ok)
	}
}
