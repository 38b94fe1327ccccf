// Package cache implements the optional pure-expression result cache: a
// map from a stable hash of an AST's textual form to its already-known
// (tag, data) result, populated only for expressions whose evaluation
// cannot observe or mutate anything outside themselves.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"consair/internal/symbol"
	"consair/internal/value"
)

// CacheConfig controls whether the cache is consulted at all and how
// many distinct expressions it will hold.
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
}

// DefaultConfig matches the reference implementation's defaults.
func DefaultConfig() CacheConfig {
	return CacheConfig{Enabled: true, MaxEntries: 1000}
}

// CacheStats tracks cache effectiveness across one driver's lifetime.
type CacheStats struct {
	Hits                uint64
	Misses              uint64
	CompilationsAvoided uint64
}

type result struct {
	tag  uint8
	data uint64
}

// Cache is safe for concurrent use; the drivers' cache pre-pass looks
// forms up in it from multiple goroutines.
type Cache struct {
	mu      sync.Mutex
	cfg     CacheConfig
	entries map[string]result
	stats   CacheStats
}

// New creates a Cache under cfg.
func New(cfg CacheConfig) *Cache {
	return &Cache{cfg: cfg, entries: make(map[string]result)}
}

// Lookup reports the cached (tag, data) for a pure expression v, tracking
// hit/miss statistics. An impure expression is never eligible for
// caching and is reported as not-found without affecting statistics —
// it was never a candidate in the first place.
func (c *Cache) Lookup(v *value.Value) (tag uint8, data uint64, ok bool) {
	if !c.cfg.Enabled || !IsPureExpression(v) {
		return 0, 0, false
	}
	key := HashExpression(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	r, found := c.entries[key]
	if !found {
		c.stats.Misses++
		return 0, 0, false
	}
	c.stats.Hits++
	c.stats.CompilationsAvoided++
	return r.tag, r.data, true
}

// Record stores the (tag, data) result of evaluating v, provided v is
// pure and the cache has not reached MaxEntries. A full cache skips the
// new entry rather than evicting an existing one.
func (c *Cache) Record(v *value.Value, tag uint8, data uint64) {
	if !c.cfg.Enabled || !IsPureExpression(v) {
		return
	}
	key := HashExpression(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.entries) >= c.cfg.MaxEntries {
		return
	}
	c.entries[key] = result{tag: tag, data: data}
}

// Stats returns a snapshot of the cache's hit/miss/avoidance counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HashExpression computes a stable hash of v's textual form, used as the
// cache key. Structurally equal ASTs always hash equal regardless of
// where they were parsed from.
func HashExpression(v *value.Value) string {
	sum := sha256.Sum256([]byte(v.String()))
	return hex.EncodeToString(sum[:])
}

// pureWhitelist names every side-effect-free primitive operator: this is
// a fixed, independent enumeration rather than a reference to the
// compiler's call dispatch table, so the cache's notion of purity stays
// decidable without importing the compiler.
var pureWhitelist = map[uint64]bool{}

func init() {
	for _, name := range []string{
		"+", "-", "*", "/", "=", "<", ">", "<=", ">=", "eq", "not",
		"null", "atom", "consp", "numberp",
		"cons", "car", "cdr", "length", "append", "reverse", "nth", "list",
		"vector", "vector-ref", "vector-length",
	} {
		pureWhitelist[symbol.Intern(name).Key()] = true
	}
}

// IsPureExpression reports whether v's evaluation cannot observe or
// mutate anything outside itself: literals, quote (its contents are
// never evaluated), and whitelisted-primitive calls whose operands are
// themselves all pure. The literal symbols t and nil are pure; every
// other symbol reference is not, since it depends on the surrounding
// environment.
func IsPureExpression(v *value.Value) bool {
	switch v.Kind {
	case value.KindNil, value.KindBool, value.KindInt, value.KindFloat, value.KindString:
		return true
	case value.KindSymbol:
		return v.Sym == symbol.T || v.Sym == symbol.Nil
	case value.KindCons:
		items, proper := v.Slice()
		if !proper || len(items) == 0 || items[0].Kind != value.KindSymbol {
			return false
		}
		op := items[0]
		if op.Sym == symbol.Quote {
			return len(items) == 2
		}
		if !pureWhitelist[op.Sym.Key()] {
			return false
		}
		for _, arg := range items[1:] {
			if !IsPureExpression(arg) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
