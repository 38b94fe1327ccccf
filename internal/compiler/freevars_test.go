package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consair/internal/reader"
	"consair/internal/substrate"
	"consair/internal/symbol"
	"consair/internal/value"
)

func parseOne(t *testing.T, src string) *value.Value {
	t.Helper()
	forms, err := reader.ReadAll(src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func keyNames(keys []uint64) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = symbol.FromKey(k).Name()
	}
	return names
}

func TestFreeVariables_LambdaParamsAreNotFree(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(lambda (x y) (+ x y))")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free)
}

func TestFreeVariables_OuterReferenceIsFree(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(lambda (y) (+ x y))")
	free := c.freeVariables(body, nil)
	assert.Equal(t, []string{"x"}, keyNames(free))
}

func TestFreeVariables_PrimitiveOperatorsAreNeverFree(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(+ 1 2)")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free)
}

func TestFreeVariables_QuotedDataContributesNothing(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(quote (a b c))")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free)
}

func TestFreeVariables_NestedLambdaCapturesOuterParam(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(lambda (x) (lambda (y) (+ x y)))")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free, "x is bound by the outer lambda, y by the inner")
}

func TestFreeVariables_SelfRecursiveLabelDoesNotCaptureItsOwnName(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(label fact (lambda (n) (fact (- n 1))))")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free)
}

func TestFreeVariables_TAndNilAreNeverFree(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(cond (t nil))")
	free := c.freeVariables(body, nil)
	assert.Empty(t, free)
}

func TestFreeVariables_ResultsAreDeduplicated(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	body := parseOne(t, "(+ z a z a)")
	free := c.freeVariables(body, nil)
	assert.ElementsMatch(t, []string{"z", "a"}, keyNames(free))
}

// TestFreeVariables_ResultsAreSortedByInternKey confirms the ordering
// contract callers rely on: two calls over structurally distinct bodies that
// reference the same two symbols produce the same key order, since that
// order is keyed by interning, not by call site.
func TestFreeVariables_ResultsAreSortedByInternKey(t *testing.T) {
	c := New(substrate.New("freevars-test"))
	a := c.freeVariables(parseOne(t, "(+ m n)"), nil)
	b := c.freeVariables(parseOne(t, "(+ n m)"), nil)
	assert.Equal(t, a, b)
}
