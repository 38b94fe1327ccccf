package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consair/internal/reader"
	"consair/internal/substrate"
	"consair/internal/value"
)

func TestIsTopLevelLabel_BareLabelDefinitionIsTrue(t *testing.T) {
	forms, err := reader.ReadAll(`(label square (lambda (n) (* n n)))`)
	require.NoError(t, err)
	assert.True(t, isTopLevelLabel(forms[0]))
}

func TestIsTopLevelLabel_LabelCallIsNotATopLevelLabel(t *testing.T) {
	forms, err := reader.ReadAll(`((label fact (lambda (n) (cond ((= n 0) 1) (t (* n (fact (- n 1))))))) 5)`)
	require.NoError(t, err)
	assert.False(t, isTopLevelLabel(forms[0]))
}

func TestIsTopLevelLabel_OrdinaryExpressionIsFalse(t *testing.T) {
	forms, err := reader.ReadAll(`(+ 1 2)`)
	require.NoError(t, err)
	assert.False(t, isTopLevelLabel(forms[0]))
}

func TestIsTopLevelLabel_AtomIsFalse(t *testing.T) {
	forms, err := reader.ReadAll(`42`)
	require.NoError(t, err)
	assert.False(t, isTopLevelLabel(forms[0]))
}

func TestCompileProgram_CachedExpressionBypassesGeneralCompilation(t *testing.T) {
	forms, err := reader.ReadAll(`(+ 1 2)`)
	require.NoError(t, err)

	c := New(substrate.New("compiler-test"))
	fns, err := c.CompileProgram(forms, constResultCache{tag: 2, data: 99})
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.False(t, fns[0].IsNil())
}

type constResultCache struct {
	tag  uint8
	data uint64
}

func (c constResultCache) Lookup(form *value.Value) (uint8, uint64, bool) {
	return c.tag, c.data, true
}
