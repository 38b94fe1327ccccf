package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"tinygo.org/x/go-llvm"

	"consair/internal/substrate"
)

func TestEnv_LookupMissOnEmptyEnv(t *testing.T) {
	var e *Env
	_, ok := e.Lookup(1)
	assert.False(t, ok)
}

func withInsertPoint(s *substrate.Substrate) {
	fnTy := llvm.FunctionType(s.T.RuntimeValue, nil, false)
	fn := llvm.AddFunction(s.Module, "probe", fnTy)
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
}

func TestEnv_ExtendShadowsOuterBinding(t *testing.T) {
	s := substrate.New("env-test")
	withInsertPoint(s)
	outer := s.ConstInt(1)
	inner := s.ConstInt(2)

	base := (&Env{}).Extend(map[uint64]llvm.Value{7: outer})
	shadowed := base.Extend(map[uint64]llvm.Value{7: inner})

	v, ok := shadowed.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, inner, v)

	// the outer frame is untouched by the inner Extend.
	v, ok = base.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, outer, v)
}

func TestEnv_LookupWalksOutward(t *testing.T) {
	s := substrate.New("env-test")
	withInsertPoint(s)
	outerVal := s.ConstInt(42)

	outer := (&Env{}).Extend(map[uint64]llvm.Value{1: outerVal})
	inner := outer.Extend(map[uint64]llvm.Value{2: s.ConstInt(99)})

	v, ok := inner.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, outerVal, v)

	_, ok = inner.Lookup(3)
	assert.False(t, ok)
}
