package suggest

import (
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
)

func TestTriePrefixMatches(t *testing.T) {
	trie := NewTrie()
	trie.Insert("helsinki", geoname.Ref(1))
	trie.Insert("helsingborg", geoname.Ref(2))
	trie.Insert("imatra", geoname.Ref(3))

	got := trie.PrefixMatches("hels")
	if len(got) != 2 {
		t.Fatalf("PrefixMatches(hels) = %v, want 2 matches", got)
	}
}

func TestTrieInsertIdempotent(t *testing.T) {
	trie := NewTrie()
	trie.Insert("helsinki", geoname.Ref(1))
	trie.Insert("helsinki", geoname.Ref(1))

	got := trie.PrefixMatches("helsinki")
	if len(got) != 1 {
		t.Fatalf("PrefixMatches after duplicate insert = %v, want 1", got)
	}
}

func TestTrieEmptyPrefixMatchesNothing(t *testing.T) {
	trie := NewTrie()
	trie.Insert("helsinki", geoname.Ref(1))
	if got := trie.PrefixMatches(""); got != nil {
		t.Fatalf("PrefixMatches(\"\") = %v, want nil", got)
	}
}

func TestTrieUnknownPrefix(t *testing.T) {
	trie := NewTrie()
	trie.Insert("helsinki", geoname.Ref(1))
	if got := trie.PrefixMatches("z"); got != nil {
		t.Fatalf("PrefixMatches(z) = %v, want nil", got)
	}
}
