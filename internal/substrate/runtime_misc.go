package substrate

import "tinygo.org/x/go-llvm"

// buildMisc defines rt_now and the refcount no-ops.
//
// rt_now calls libc time(NULL) and returns the Unix-epoch second count
// as INT.
//
// rt_incref/rt_decref exist only so generated code has somewhere to call
// if a future pass wires up real reference counting; today they are
// pass-through no-ops.
func (s *Substrate) buildMisc() {
	t := s.T

	nowTy := llvm.FunctionType(t.RuntimeValue, nil, false)
	nowFn := llvm.AddFunction(s.Module, "rt_now", nowTy)
	s.fns["rt_now"] = nowFn
	entry := llvm.AddBasicBlock(nowFn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
	sec := s.Builder.CreateCall(s.timeFn, []llvm.Value{llvm.ConstPointerNull(t.Ptr)}, "now.sec")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagInt), sec))

	fn, _ := s.newRTFunc("rt_incref", "v")
	s.Builder.CreateRet(fn.Param(0))

	fn2, _ := s.newRTFunc("rt_decref", "v")
	s.Builder.CreateRet(fn2.Param(0))
}
