package symbol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern_SameNameSameKey(t *testing.T) {
	a := Intern("frobnicate")
	b := Intern("frobnicate")
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a, b)
}

func TestIntern_DistinctNamesDistinctKeys(t *testing.T) {
	a := Intern("alpha-unique")
	b := Intern("beta-unique")
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestSymbol_NameRoundTrips(t *testing.T) {
	s := Intern("round-trip-me")
	assert.Equal(t, "round-trip-me", s.Name())
}

func TestFromKey_ResolvesAnExistingInterning(t *testing.T) {
	s := Intern("from-key-target")
	reconstructed := FromKey(s.Key())
	assert.Equal(t, "from-key-target", reconstructed.Name())
}

func TestWellKnownSymbols_AreDistinct(t *testing.T) {
	seen := make(map[uint64]string)
	wellKnown := map[string]Symbol{
		"t": T, "nil": Nil, "quote": Quote, "cond": Cond, "if": If,
		"lambda": Lambda, "label": Label,
		"+": Plus, "-": Minus, "*": Star, "/": Slash,
		"=": NumEq, "<": Lt, ">": Gt, "<=": Lte, ">=": Gte,
		"eq": Eq, "not": Not,
		"null": Null, "atom": Atom, "consp": Consp, "numberp": Numberp,
		"cons": Cons, "car": Car, "cdr": Cdr, "length": Length,
		"append": Append, "reverse": Reverse, "nth": Nth, "list": List,
		"vector": Vector, "vector-ref": VectorRef, "vector-length": VectorLength,
	}
	for name, sym := range wellKnown {
		require.Equal(t, name, sym.Name())
		if existing, ok := seen[sym.Key()]; ok {
			t.Fatalf("symbols %q and %q share key %d", existing, name, sym.Key())
		}
		seen[sym.Key()] = name
	}
}

// TestIntern_ConcurrentInterningIsSafe exercises the RLock/Lock
// recheck-under-write-lock path in Intern by hammering the same new name
// from many goroutines at once.
func TestIntern_ConcurrentInterningIsSafe(t *testing.T) {
	const workers = 64
	var wg sync.WaitGroup
	keys := make([]uint64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i] = Intern("concurrent-target").Key()
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		assert.Equal(t, keys[0], keys[i])
	}
}
