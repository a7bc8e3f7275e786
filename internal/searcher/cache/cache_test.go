package cache

import (
	"testing"

	"github.com/tobiaswidmer/poisearch/internal/index"
)

func TestBuildKeyDistinguishesCase(t *testing.T) {
	// The scorers are case-sensitive, so "Ballarena" and "ballarena" rank
	// differently and must never share a cache entry.
	c := &ResultCache{}
	upper := c.buildKey(index.Query{Text: "Ballarena", K: 5})
	lower := c.buildKey(index.Query{Text: "ballarena", K: 5})
	if upper == lower {
		t.Error("queries differing only in case share a cache key")
	}
}

func TestBuildKeyStableAndDistinct(t *testing.T) {
	c := &ResultCache{}
	base := index.Query{Text: "ballarena", K: 5, ChannelID: "c1"}
	if c.buildKey(base) != c.buildKey(base) {
		t.Error("same query produced different keys")
	}
	if c.buildKey(base) == c.buildKey(index.Query{Text: "ballarena", K: 6, ChannelID: "c1"}) {
		t.Error("different k shares a cache key")
	}
	if c.buildKey(base) == c.buildKey(index.Query{Text: "ballarena", K: 5, ChannelID: "c2"}) {
		t.Error("different channel shares a cache key")
	}
}
