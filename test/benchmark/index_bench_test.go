package benchmark

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/fmidev/geonames-engine/internal/geoname"
	"github.com/fmidev/geonames-engine/internal/keyword"
	"github.com/fmidev/geonames-engine/internal/rank"
	"github.com/fmidev/geonames-engine/internal/spatial"
	"github.com/fmidev/geonames-engine/internal/suggest"
)

// BenchmarkSpatialNearest measures C5 nearest-neighbour lookup over
// increasing index sizes, with and without a radius bound.
func BenchmarkSpatialNearest(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		idx := buildSpatialIndex(n)

		b.Run(fmt.Sprintf("unbounded_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = idx.Nearest(25.0, 60.0, spatial.Unbounded, 10)
			}
		})

		b.Run(fmt.Sprintf("radius50km_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = idx.Nearest(25.0, 60.0, 50.0, 10)
			}
		})
	}
}

func buildSpatialIndex(n int) *spatial.Index {
	rng := rand.New(rand.NewSource(int64(n)))
	builder := spatial.NewBuilder()
	for i := 0; i < n; i++ {
		lon := rng.Float64()*360 - 180
		lat := rng.Float64()*180 - 90
		builder.Add(geoname.Ref(i), lon, lat)
	}
	return builder.Build()
}

// BenchmarkKeywordMembers measures keyword-scoped membership lookup, the
// first step of every name/keyword_search call.
func BenchmarkKeywordMembers(b *testing.B) {
	sizes := []int{100, 10000, 100000}
	for _, n := range sizes {
		idx := keyword.NewIndex()
		refs := make([]geoname.Ref, n)
		for i := 0; i < n; i++ {
			refs[i] = geoname.Ref(i)
		}
		idx.Freeze(refs)

		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = idx.Members(keyword.All)
			}
		})
	}
}

// BenchmarkRank measures the per-location priority computation the loader
// runs once for every row during C8 reload.
func BenchmarkRank(b *testing.B) {
	tables := rank.NewTables()
	tables.Countries["FI"] = 1000
	tables.Populations["FI"] = 1
	tables.ExactMatch = 10000

	loc := geoname.Location{
		ISO2:       "FI",
		Population: 500000,
		Area:       "18",
		Feature:    "PPLC",
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rank.Rank(loc, tables)
	}
}

// BenchmarkSuggestPrefixMatch measures ternary-search-trie prefix lookup
// across increasing trie sizes, the hot path behind C8's suggest_search.
func BenchmarkSuggestPrefixMatch(b *testing.B) {
	sizes := []int{1000, 10000, 100000}
	prefixes := []string{"he", "hels", "helsinki"}

	for _, n := range sizes {
		trie := buildSuggestTrie(n)

		for _, prefix := range prefixes {
			b.Run(fmt.Sprintf("entries_%d/prefix_%s", n, prefix), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_ = trie.PrefixMatches(prefix)
				}
			})
		}
	}
}

func buildSuggestTrie(n int) *suggest.Trie {
	trie := suggest.NewTrie()
	trie.Insert("helsinki", geoname.Ref(0))
	for i := 1; i < n; i++ {
		trie.Insert(fmt.Sprintf("place%d", i), geoname.Ref(i))
	}
	return trie
}
