package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consair/internal/reader"
	"consair/internal/substrate"
)

// A cond whose last clause tests something other than the literal t must
// still produce valid IR when it falls through unmatched: the merge block
// must not become its own phi predecessor or carry a self-branch
// terminator. Substrate.Verify() is the mechanism that would catch either
// defect.
func TestCompileCond_NonTLastClauseFallsThroughToNilWithoutSelfBranch(t *testing.T) {
	forms, err := reader.ReadAll(`(cond ((= 1 2) 100))`)
	require.NoError(t, err)

	s := substrate.New("cond-fallthrough-test")
	c := New(s)
	fns, err := c.CompileProgram(forms, nil)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.False(t, fns[0].IsNil())
	assert.NoError(t, s.Verify())
}

// A multi-clause cond whose last clause is also a non-t test exercises the
// same fallthrough path after at least one ordinary clause, confirming the
// fix generalizes beyond the single-clause case.
func TestCompileCond_MultiClauseNonTLastClauseVerifies(t *testing.T) {
	forms, err := reader.ReadAll(`(cond ((= 1 1) 1) ((= 1 2) 2))`)
	require.NoError(t, err)

	s := substrate.New("cond-multi-fallthrough-test")
	c := New(s)
	fns, err := c.CompileProgram(forms, nil)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.False(t, fns[0].IsNil())
	assert.NoError(t, s.Verify())
}

// A cond whose last clause is the literal t still takes the
// unconditional-fallthrough path, never reaching the NIL branch; confirm
// that shape still verifies alongside the fix above.
func TestCompileCond_LiteralTLastClauseVerifies(t *testing.T) {
	forms, err := reader.ReadAll(`(cond ((= 1 2) 100) (t 200))`)
	require.NoError(t, err)

	s := substrate.New("cond-literal-t-test")
	c := New(s)
	fns, err := c.CompileProgram(forms, nil)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.False(t, fns[0].IsNil())
	assert.NoError(t, s.Verify())
}
