package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consair/internal/reader"
	"consair/internal/value"
)

func read(t *testing.T, src string) *value.Value {
	t.Helper()
	forms, err := reader.ReadAll(src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func TestIsPureExpression(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"integer literal", "42", true},
		{"float literal", "3.14", true},
		{"string literal", `"hi"`, true},
		{"nil literal", "nil", true},
		{"bare symbol is never pure", "x", false},
		{"quote is always pure regardless of contents", "(quote (x y z))", true},
		{"quote of an unbound symbol is still pure", "(quote undefined-name)", true},
		{"whitelisted primitive with pure args", "(+ 1 2 3)", true},
		{"whitelisted primitive with an impure arg", "(+ 1 x)", false},
		{"nested pure primitives", "(car (cons 1 2))", true},
		{"non-whitelisted operator", "(some-user-function 1 2)", false},
		{"lambda is not in the whitelist", "(lambda (x) x)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPureExpression(read(t, tt.src)))
		})
	}
}

func TestCache_LookupMissThenHitAfterRecord(t *testing.T) {
	c := New(DefaultConfig())
	form := read(t, "(+ 1 2)")

	_, _, ok := c.Lookup(form)
	assert.False(t, ok)

	c.Record(form, 2, 3)

	tag, data, ok := c.Lookup(form)
	require.True(t, ok)
	assert.Equal(t, uint8(2), tag)
	assert.Equal(t, uint64(3), data)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.CompilationsAvoided)
}

func TestCache_ImpureExpressionsAreNeverCached(t *testing.T) {
	c := New(DefaultConfig())
	form := read(t, "x")

	c.Record(form, 2, 99)
	_, _, ok := c.Lookup(form)
	assert.False(t, ok)
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestCache_StructurallyEqualFormsShareAnEntry(t *testing.T) {
	c := New(DefaultConfig())
	c.Record(read(t, "(+ 1 2)"), 2, 3)

	tag, data, ok := c.Lookup(read(t, "(+ 1 2)"))
	require.True(t, ok)
	assert.Equal(t, uint8(2), tag)
	assert.Equal(t, uint64(3), data)
}

func TestCache_DisabledConfigNeverCaches(t *testing.T) {
	c := New(CacheConfig{Enabled: false, MaxEntries: 1000})
	form := read(t, "(+ 1 2)")
	c.Record(form, 2, 3)
	_, _, ok := c.Lookup(form)
	assert.False(t, ok)
}

func TestCache_FullCacheSkipsNewEntriesWithoutEvicting(t *testing.T) {
	c := New(CacheConfig{Enabled: true, MaxEntries: 1})
	first := read(t, "(+ 1 2)")
	second := read(t, "(+ 3 4)")

	c.Record(first, 2, 3)
	c.Record(second, 2, 7)

	_, _, ok := c.Lookup(first)
	assert.True(t, ok, "the existing entry must survive a full cache")
	_, _, ok = c.Lookup(second)
	assert.False(t, ok, "a full cache must not admit a new entry")
}

func TestHashExpression_StableForEqualText(t *testing.T) {
	a := HashExpression(read(t, "(+ 1 2)"))
	b := HashExpression(read(t, "(+ 1 2)"))
	assert.Equal(t, a, b)
}

func TestHashExpression_DiffersForDifferentText(t *testing.T) {
	a := HashExpression(read(t, "(+ 1 2)"))
	b := HashExpression(read(t, "(+ 1 3)"))
	assert.NotEqual(t, a, b)
}
