package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"consair/internal/cache"
	"consair/internal/reader"
)

func evalSrc(t *testing.T, j *JIT, src string) {
	t.Helper()
	forms, err := reader.ReadAll(src)
	require.NoError(t, err)
	require.NoError(t, j.EvalAll(context.Background(), forms))
}

// TestJIT_EvalAll_ArithmeticSum exercises the full capture-thunk /
// println-shim path end to end for "(+ 1 2 3 4)".
func TestJIT_EvalAll_ArithmeticSum(t *testing.T) {
	j := NewJIT(cache.DefaultConfig())
	evalSrc(t, j, "(+ 1 2 3 4)")
}

// TestJIT_EvalAll_DefinitionsPersistAcrossCalls exercises the REPL's
// incremental-evaluation contract: a label defined in one EvalAll call
// must be directly callable from a later call against the same JIT.
func TestJIT_EvalAll_DefinitionsPersistAcrossCalls(t *testing.T) {
	j := NewJIT(cache.DefaultConfig())
	evalSrc(t, j, `(label square (lambda (n) (* n n)))`)
	evalSrc(t, j, `(square 9)`)
}

// TestJIT_EvalAll_PureExpressionIsCachedAcrossCalls confirms a second,
// structurally identical pure expression records a cache hit.
func TestJIT_EvalAll_PureExpressionIsCachedAcrossCalls(t *testing.T) {
	j := NewJIT(cache.DefaultConfig())
	evalSrc(t, j, "(+ 40 2)")
	evalSrc(t, j, "(+ 40 2)")
	require.Equal(t, uint64(1), j.Stats().Hits)
}

func TestJIT_EvalAll_EmptyInputIsANoOp(t *testing.T) {
	j := NewJIT(cache.DefaultConfig())
	require.NoError(t, j.EvalAll(context.Background(), nil))
}
