package substrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func TestNew_BuildsRuntimeValueStructLayout(t *testing.T) {
	s := New("test-module")
	assert.Equal(t, "RuntimeValue", s.T.RuntimeValue.StructName())
	elems := s.T.RuntimeValue.StructElementTypes()
	require.Len(t, elems, 2)
	assert.Equal(t, s.T.I8, elems[0])
	assert.Equal(t, s.T.I64, elems[1])
}

func TestNew_RegistersEveryRuntimeHelper(t *testing.T) {
	s := New("test-module")
	for _, name := range []string{
		"rt_add", "rt_sub", "rt_mul", "rt_num_eq",
		"rt_cons", "rt_car", "rt_cdr",
		"rt_make_closure",
		"rt_make_vector", "rt_vector_ref",
		"rt_println",
	} {
		fn := s.Fn(name)
		assert.False(t, fn.IsNil(), "expected %s to be registered", name)
	}
}

func TestFn_PanicsOnUnknownName(t *testing.T) {
	s := New("test-module")
	assert.Panics(t, func() {
		s.Fn("rt_does_not_exist")
	})
}

func TestNew_FreshModulePassesVerification(t *testing.T) {
	s := New("test-module")
	assert.NoError(t, s.Verify())
}

func TestString_RendersTheModuleName(t *testing.T) {
	s := New("a-unique-module-name")
	assert.Contains(t, s.String(), "a-unique-module-name")
}

func TestAddDeclare_ReturnsTheSameFunctionOnRepeatedCalls(t *testing.T) {
	s := New("test-module")
	first := s.addDeclare("malloc", s.mallocFn.Type())
	second := s.addDeclare("malloc", s.mallocFn.Type())
	assert.Equal(t, first.Name(), second.Name())
	assert.False(t, first.IsNil())
	assert.False(t, second.IsNil())
}

func TestMakeRV_ProducesAStructValueOfRuntimeValueType(t *testing.T) {
	s := New("test-module")
	fnTy := llvm.FunctionType(s.T.RuntimeValue, nil, false)
	fn := llvm.AddFunction(s.Module, "probe", fnTy)
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)

	rv := s.ConstInt(42)
	assert.Equal(t, s.T.RuntimeValue, rv.Type())
}
