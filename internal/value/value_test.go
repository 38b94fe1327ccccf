package value

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"consair/internal/symbol"
	"consair/internal/testutil"
)

func TestList_BuildsAProperList(t *testing.T) {
	l := List(Int(1), Int(2), Int(3))
	elems, proper := l.Slice()
	assert.True(t, proper)
	assert.Len(t, elems, 3)
	assert.Equal(t, int64(1), elems[0].Int)
	assert.Equal(t, int64(3), elems[2].Int)
}

func TestSlice_ImproperListReportsFalse(t *testing.T) {
	improper := Cons(Int(1), Int(2))
	_, proper := improper.Slice()
	assert.False(t, proper)
}

func TestSlice_EmptyListIsProperAndEmpty(t *testing.T) {
	elems, proper := Nil().Slice()
	assert.True(t, proper)
	assert.Empty(t, elems)
}

func TestIsAtom_ConsIsNotAnAtomEverythingElseIs(t *testing.T) {
	assert.False(t, Cons(Int(1), Nil()).IsAtom())
	assert.True(t, Nil().IsAtom())
	assert.True(t, Int(1).IsAtom())
	assert.True(t, Sym(symbol.Intern("x")).IsAtom())
}

func TestString_RendersProperLists(t *testing.T) {
	l := List(Int(1), Int(2), Bool(true))
	assert.Equal(t, "(1 2 true)", l.String())
}

func TestString_RendersImproperLists(t *testing.T) {
	l := Cons(Int(1), Int(2))
	assert.Equal(t, "(1 . 2)", l.String())
}

func TestString_RendersNilAndAtoms(t *testing.T) {
	assert.Equal(t, "nil", Nil().String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "false", Bool(false).String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "hello", Str("hello").String())
}

func TestString_RendersVectors(t *testing.T) {
	v := Vector([]*Value{Int(10), Int(20)})
	assert.Equal(t, "#(10 20)", v.String())
}

// TestString_RendersNestedStructureGolden exercises the rendering of a
// deeply nested, mixed-type tree against a golden expected string, printing
// a readable diff on mismatch rather than a plain string-inequality
// failure.
func TestString_RendersNestedStructureGolden(t *testing.T) {
	tree := List(
		Sym(symbol.Intern("label")),
		Sym(symbol.Intern("fact")),
		List(
			Sym(symbol.Intern("lambda")),
			List(Sym(symbol.Intern("n"))),
			List(
				Sym(symbol.Intern("cond")),
				List(List(Sym(symbol.Intern("=")), Sym(symbol.Intern("n")), Int(0)), Int(1)),
				List(Sym(symbol.Intern("t")),
					List(Sym(symbol.Intern("*")), Sym(symbol.Intern("n")),
						List(Sym(symbol.Intern("fact")), List(Sym(symbol.Intern("-")), Sym(symbol.Intern("n")), Int(1))))),
			),
		),
	)
	want := "(label fact (lambda (n) (cond ((= n 0) 1) (t (* n (fact (- n 1)))))))"
	testutil.AssertGoldenText(t, want, tree.String())
}

func TestKind_StringNamesEveryVariant(t *testing.T) {
	for k := KindNil; k <= KindNativeFn; k++ {
		assert.NotContains(t, k.String(), "Kind(")
	}
}
