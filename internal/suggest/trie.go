package suggest

import "github.com/fmidev/geonames-engine/internal/geoname"

// Trie is a ternary search tree mapping normalized treewords to location
// references. It supports insert and prefix lookup with lazily-sorted
// (key order) output. Duplicate inserts of the same key/value pair are
// idempotent. Not safe for concurrent writes; built once per generation and
// read-only thereafter, like every other suggest-index structure.
type Trie struct {
	root *tstNode
}

type tstNode struct {
	c                  rune
	left, mid, right   *tstNode
	isEnd              bool
	refs               []geoname.Ref
}

// NewTrie returns an empty Trie.
func NewTrie() *Trie {
	return &Trie{}
}

// Insert associates key with ref. A repeated (key, ref) pair is a no-op.
func (t *Trie) Insert(key string, ref geoname.Ref) {
	if key == "" {
		return
	}
	t.root = insertRune(t.root, []rune(key), 0, ref)
}

func insertRune(x *tstNode, key []rune, d int, ref geoname.Ref) *tstNode {
	c := key[d]
	if x == nil {
		x = &tstNode{c: c}
	}
	switch {
	case c < x.c:
		x.left = insertRune(x.left, key, d, ref)
	case c > x.c:
		x.right = insertRune(x.right, key, d, ref)
	case d < len(key)-1:
		x.mid = insertRune(x.mid, key, d+1, ref)
	default:
		x.isEnd = true
		if !containsRef(x.refs, ref) {
			x.refs = append(x.refs, ref)
		}
	}
	return x
}

func containsRef(refs []geoname.Ref, ref geoname.Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

// PrefixMatches returns every location reference stored under a key that
// starts with prefix, in key order. An empty prefix matches nothing (the
// suggest pipeline treats an empty normalized pattern as "no matches", not
// "everything").
func (t *Trie) PrefixMatches(prefix string) []geoname.Ref {
	if prefix == "" {
		return nil
	}
	key := []rune(prefix)
	x := get(t.root, key, 0)
	if x == nil {
		return nil
	}
	var out []geoname.Ref
	if x.isEnd {
		out = append(out, x.refs...)
	}
	collect(x.mid, &out)
	return out
}

func get(x *tstNode, key []rune, d int) *tstNode {
	if x == nil {
		return nil
	}
	c := key[d]
	switch {
	case c < x.c:
		return get(x.left, key, d)
	case c > x.c:
		return get(x.right, key, d)
	case d < len(key)-1:
		return get(x.mid, key, d+1)
	default:
		return x
	}
}

func collect(x *tstNode, out *[]geoname.Ref) {
	if x == nil {
		return
	}
	collect(x.left, out)
	if x.isEnd {
		*out = append(*out, x.refs...)
	}
	collect(x.mid, out)
	collect(x.right, out)
}
