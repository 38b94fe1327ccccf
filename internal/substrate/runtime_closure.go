package substrate

import "tinygo.org/x/go-llvm"

// --- closures -------------------------------------------------------------
//
// rt_make_closure/rt_closure_* take or return raw pointer/i32 operands
// alongside RuntimeValue, since the compiler already has the closure's
// fn_ptr and env_ptr as plain i8* SSA values at the point it builds or
// calls one. These are declared with their own signatures instead of
// going through newRTFunc's uniform RuntimeValue-only shape.

func (s *Substrate) buildClosureOps() {
	t := s.T

	makeClosureTy := llvm.FunctionType(t.RuntimeValue, []llvm.Type{t.Ptr, t.Ptr, t.I32}, false)
	makeClosure := llvm.AddFunction(s.Module, "rt_make_closure", makeClosureTy)
	s.fns["rt_make_closure"] = makeClosure
	{
		fnPtr, envPtr, envSize := makeClosure.Param(0), makeClosure.Param(1), makeClosure.Param(2)
		entry := llvm.AddBasicBlock(makeClosure, "entry")
		s.Builder.SetInsertPointAtEnd(entry)

		raw := s.malloc(llvm.SizeOf(t.Closure), "closure.raw")
		cl := s.Builder.CreateBitCast(raw, llvm.PointerType(t.Closure, 0), "closure.ptr")
		s.Builder.CreateStore(fnPtr, s.gep0(t.Closure, cl, 0, "closure.fn"))

		sizeBytes := s.Builder.CreateMul(
			s.Builder.CreateZExt(envSize, t.I64, "env.size64"),
			llvm.SizeOf(t.RuntimeValue), "env.bytes")
		ownedEnv := s.malloc(sizeBytes, "env.owned")
		hasEnv := s.Builder.CreateICmp(llvm.IntNE, envSize, llvm.ConstInt(t.I32, 0, false), "has_env")
		copiedEnv := s.branchCopyEnv(makeClosure, hasEnv, ownedEnv, envPtr, sizeBytes)

		s.Builder.CreateStore(copiedEnv, s.gep0(t.Closure, cl, 1, "closure.env"))
		s.Builder.CreateStore(envSize, s.gep0(t.Closure, cl, 2, "closure.envsize"))
		s.Builder.CreateStore(llvm.ConstInt(t.I32, 1, false), s.gep0(t.Closure, cl, 3, "closure.rc"))

		data := s.Builder.CreatePtrToInt(raw, t.I64, "closure.data")
		s.Builder.CreateRet(s.makeRV(s.constTag(TagClosure), data))
	}

	// rt_closure_fn_ptr / env_get / env_size selectors return null/NIL/0
	// on tag mismatch, never trapping.
	fnPtrTy := llvm.FunctionType(t.Ptr, []llvm.Type{t.RuntimeValue}, false)
	fnPtrFn := llvm.AddFunction(s.Module, "rt_closure_fn_ptr", fnPtrTy)
	s.fns["rt_closure_fn_ptr"] = fnPtrFn
	{
		entry := llvm.AddBasicBlock(fnPtrFn, "entry")
		s.Builder.SetInsertPointAtEnd(entry)
		v := fnPtrFn.Param(0)
		isClosure := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(v), s.constTag(TagClosure), "is_closure")
		thenBB := llvm.AddBasicBlock(fnPtrFn, "then")
		elseBB := llvm.AddBasicBlock(fnPtrFn, "else")
		mergeBB := llvm.AddBasicBlock(fnPtrFn, "merge")
		s.Builder.CreateCondBr(isClosure, thenBB, elseBB)

		s.Builder.SetInsertPointAtEnd(thenBB)
		cl := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Closure, 0), "closure.ptr")
		fnv := s.Builder.CreateLoad(s.gep0(t.Closure, cl, 0, "closure.fn"), "fn.val")
		s.Builder.CreateBr(mergeBB)
		thenEnd := s.Builder.GetInsertBlock()

		s.Builder.SetInsertPointAtEnd(elseBB)
		nullPtr := llvm.ConstPointerNull(t.Ptr)
		s.Builder.CreateBr(mergeBB)
		elseEnd := s.Builder.GetInsertBlock()

		s.Builder.SetInsertPointAtEnd(mergeBB)
		phi := s.Builder.CreatePHI(t.Ptr, "fn_ptr")
		phi.AddIncoming([]llvm.Value{fnv, nullPtr}, []llvm.BasicBlock{thenEnd, elseEnd})
		s.Builder.CreateRet(phi)
	}

	envSizeTy := llvm.FunctionType(t.I32, []llvm.Type{t.RuntimeValue}, false)
	envSizeFn := llvm.AddFunction(s.Module, "rt_closure_env_size", envSizeTy)
	s.fns["rt_closure_env_size"] = envSizeFn
	{
		entry := llvm.AddBasicBlock(envSizeFn, "entry")
		s.Builder.SetInsertPointAtEnd(entry)
		v := envSizeFn.Param(0)
		isClosure := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(v), s.constTag(TagClosure), "is_closure")
		thenBB := llvm.AddBasicBlock(envSizeFn, "then")
		elseBB := llvm.AddBasicBlock(envSizeFn, "else")
		mergeBB := llvm.AddBasicBlock(envSizeFn, "merge")
		s.Builder.CreateCondBr(isClosure, thenBB, elseBB)

		s.Builder.SetInsertPointAtEnd(thenBB)
		cl := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Closure, 0), "closure.ptr")
		size := s.Builder.CreateLoad(s.gep0(t.Closure, cl, 2, "closure.envsize"), "size.val")
		s.Builder.CreateBr(mergeBB)
		thenEnd := s.Builder.GetInsertBlock()

		s.Builder.SetInsertPointAtEnd(elseBB)
		zero := llvm.ConstInt(t.I32, 0, false)
		s.Builder.CreateBr(mergeBB)
		elseEnd := s.Builder.GetInsertBlock()

		s.Builder.SetInsertPointAtEnd(mergeBB)
		phi := s.Builder.CreatePHI(t.I32, "env_size")
		phi.AddIncoming([]llvm.Value{size, zero}, []llvm.BasicBlock{thenEnd, elseEnd})
		s.Builder.CreateRet(phi)
	}

	envGetTy := llvm.FunctionType(t.RuntimeValue, []llvm.Type{t.RuntimeValue, t.I32}, false)
	envGetFn := llvm.AddFunction(s.Module, "rt_closure_env_get", envGetTy)
	s.fns["rt_closure_env_get"] = envGetFn
	{
		entry := llvm.AddBasicBlock(envGetFn, "entry")
		s.Builder.SetInsertPointAtEnd(entry)
		v, i := envGetFn.Param(0), envGetFn.Param(1)
		isClosure := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(v), s.constTag(TagClosure), "is_closure")
		s.Builder.CreateRet(s.branchMergeRV(envGetFn, isClosure,
			func() llvm.Value {
				cl := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Closure, 0), "closure.ptr")
				envPtr := s.Builder.CreateLoad(s.gep0(t.Closure, cl, 1, "closure.env"), "env.ptr")
				elemPtr := s.Builder.CreateGEP(s.Builder.CreateBitCast(envPtr, llvm.PointerType(t.RuntimeValue, 0), "env.typed"),
					[]llvm.Value{i}, "env.elem.ptr")
				return s.Builder.CreateLoad(elemPtr, "env.elem")
			},
			func() llvm.Value { return s.ConstNil() },
		))
	}
}

// branchCopyEnv copies size bytes from src into dst via memcpy only when
// hasEnv holds, so env_ptr is null exactly when env_size is 0; otherwise
// it yields a null pointer.
func (s *Substrate) branchCopyEnv(fn llvm.Value, hasEnv llvm.Value, dst, src, size llvm.Value) llvm.Value {
	thenBB := llvm.AddBasicBlock(fn, "copy.then")
	elseBB := llvm.AddBasicBlock(fn, "copy.else")
	mergeBB := llvm.AddBasicBlock(fn, "copy.merge")
	s.Builder.CreateCondBr(hasEnv, thenBB, elseBB)

	s.Builder.SetInsertPointAtEnd(thenBB)
	s.Builder.CreateCall(s.memcpyFn, []llvm.Value{dst, src, size}, "")
	s.Builder.CreateBr(mergeBB)
	thenEnd := s.Builder.GetInsertBlock()

	s.Builder.SetInsertPointAtEnd(elseBB)
	null := llvm.ConstPointerNull(s.T.Ptr)
	s.Builder.CreateBr(mergeBB)
	elseEnd := s.Builder.GetInsertBlock()

	s.Builder.SetInsertPointAtEnd(mergeBB)
	phi := s.Builder.CreatePHI(s.T.Ptr, "env.final")
	phi.AddIncoming([]llvm.Value{dst, null}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi
}
