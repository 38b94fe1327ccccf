package substrate

import "tinygo.org/x/go-llvm"

// --- vectors ---------------------------------------------------------

func (s *Substrate) buildVectorOps() {
	t := s.T

	makeVecTy := llvm.FunctionType(t.RuntimeValue, []llvm.Type{t.Ptr, t.I64}, false)
	makeVec := llvm.AddFunction(s.Module, "rt_make_vector", makeVecTy)
	s.fns["rt_make_vector"] = makeVec
	{
		elems, length := makeVec.Param(0), makeVec.Param(1)
		entry := llvm.AddBasicBlock(makeVec, "entry")
		s.Builder.SetInsertPointAtEnd(entry)

		raw := s.malloc(llvm.SizeOf(t.Vector), "vec.raw")
		vec := s.Builder.CreateBitCast(raw, llvm.PointerType(t.Vector, 0), "vec.ptr")

		sizeBytes := s.Builder.CreateMul(length, llvm.SizeOf(t.RuntimeValue), "elems.bytes")
		hasElems := s.Builder.CreateICmp(llvm.IntNE, length, llvm.ConstInt(t.I64, 0, false), "has_elems")
		owned := s.malloc(sizeBytes, "elems.owned")
		copied := s.branchCopyEnv(makeVec, hasElems, owned, elems, sizeBytes)

		s.Builder.CreateStore(copied, s.gep0(t.Vector, vec, 0, "vec.elems"))
		s.Builder.CreateStore(length, s.gep0(t.Vector, vec, 1, "vec.len"))
		s.Builder.CreateStore(llvm.ConstInt(t.I32, 1, false), s.gep0(t.Vector, vec, 2, "vec.rc"))

		data := s.Builder.CreatePtrToInt(raw, t.I64, "vec.data")
		s.Builder.CreateRet(s.makeRV(s.constTag(TagVector), data))
	}

	fn, _ := s.newRTFunc("rt_vector_length", "v")
	{
		v := fn.Param(0)
		isVec := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(v), s.constTag(TagVector), "is_vector")
		s.Builder.CreateRet(s.branchMergeRV(fn, isVec,
			func() llvm.Value {
				vec := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Vector, 0), "vec.ptr")
				length := s.Builder.CreateLoad(s.gep0(t.Vector, vec, 1, "vec.len"), "len.val")
				return s.makeRV(s.constTag(TagInt), length)
			},
			func() llvm.Value { return s.ConstNil() },
		))
	}

	fn2, _ := s.newRTFunc("rt_vector_ref", "v", "idx")
	{
		v, idx := fn2.Param(0), fn2.Param(1)
		isVec := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(v), s.constTag(TagVector), "is_vector")
		s.Builder.CreateRet(s.branchMergeRV(fn2, isVec,
			func() llvm.Value {
				vec := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Vector, 0), "vec.ptr")
				length := s.Builder.CreateLoad(s.gep0(t.Vector, vec, 1, "vec.len"), "len.val")
				idxData := s.RvData(idx)
				inRange := s.Builder.CreateAnd(
					s.Builder.CreateICmp(llvm.IntSGE, idxData, llvm.ConstInt(t.I64, 0, false), "idx_nonneg"),
					s.Builder.CreateICmp(llvm.IntSLT, idxData, length, "idx_lt_len"), "in_range")
				return s.branchMergeRV(fn2, inRange,
					func() llvm.Value {
						elemsPtr := s.Builder.CreateLoad(s.gep0(t.Vector, vec, 0, "vec.elems"), "elems.ptr")
						typed := s.Builder.CreateBitCast(elemsPtr, llvm.PointerType(t.RuntimeValue, 0), "elems.typed")
						elemPtr := s.Builder.CreateGEP(typed, []llvm.Value{idxData}, "elem.ptr")
						return s.Builder.CreateLoad(elemPtr, "elem.val")
					},
					func() llvm.Value { return s.ConstNil() },
				)
			},
			func() llvm.Value { return s.ConstNil() },
		))
	}
}
