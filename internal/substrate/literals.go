package substrate

import "tinygo.org/x/go-llvm"

// makeRV builds a RuntimeValue constant/SSA-value from a tag byte and a
// 64-bit data payload — the single place that assembles the {tag,data}
// struct.
func (s *Substrate) makeRV(tag llvm.Value, data llvm.Value) llvm.Value {
	undef := llvm.Undef(s.T.RuntimeValue)
	withTag := s.Builder.CreateInsertValue(undef, tag, 0, "rv.tag")
	return s.Builder.CreateInsertValue(withTag, data, 1, "rv.data")
}

func (s *Substrate) constTag(tag uint64) llvm.Value {
	return llvm.ConstInt(s.T.I8, tag, false)
}

// RvTag extracts the tag byte of a RuntimeValue SSA value.
func (s *Substrate) RvTag(rv llvm.Value) llvm.Value {
	return s.Builder.CreateExtractValue(rv, 0, "tag")
}

// RvData extracts the raw i64 payload of a RuntimeValue SSA value.
func (s *Substrate) RvData(rv llvm.Value) llvm.Value {
	return s.Builder.CreateExtractValue(rv, 1, "data")
}

// ConstNil returns the constant RuntimeValue for NIL.
func (s *Substrate) ConstNil() llvm.Value {
	return s.makeRV(s.constTag(TagNil), llvm.ConstInt(s.T.I64, 0, false))
}

// ConstBool returns the constant RuntimeValue for BOOL(b).
func (s *Substrate) ConstBool(b bool) llvm.Value {
	v := uint64(0)
	if b {
		v = 1
	}
	return s.makeRV(s.constTag(TagBool), llvm.ConstInt(s.T.I64, v, false))
}

// ConstInt returns the constant RuntimeValue for INT(n), the i64 bit
// pattern stored directly in data.
func (s *Substrate) ConstInt(n int64) llvm.Value {
	return s.makeRV(s.constTag(TagInt), llvm.ConstInt(s.T.I64, uint64(n), true))
}

// ConstFloat returns the constant RuntimeValue for FLOAT(f), with the
// IEEE-754 bit pattern of f stored in data.
func (s *Substrate) ConstFloat(f float64) llvm.Value {
	fc := llvm.ConstFloat(s.T.F64, f)
	bits := llvm.ConstBitCast(fc, s.T.I64)
	return s.makeRV(s.constTag(TagFloat), bits)
}

// ConstSymbol returns the constant RuntimeValue for SYMBOL(key). key is
// the interner's opaque handle, already a uint64 by construction in
// internal/symbol.
func (s *Substrate) ConstSymbol(key uint64) llvm.Value {
	return s.makeRV(s.constTag(TagSymbol), llvm.ConstInt(s.T.I64, key, false))
}

// branchMergeRV builds a two-way branch on cond where both arms produce
// a RuntimeValue, merging them with a phi node. Used by the runtime
// helpers whose behavior depends on a tag check that a pure select cannot
// express because one arm dereferences a pointer only valid in that arm;
// the compiler's cond/if build their own blocks.
func (s *Substrate) branchMergeRV(fn llvm.Value, cond llvm.Value, thenFn, elseFn func() llvm.Value) llvm.Value {
	thenBB := llvm.AddBasicBlock(fn, "then")
	elseBB := llvm.AddBasicBlock(fn, "else")
	mergeBB := llvm.AddBasicBlock(fn, "merge")

	s.Builder.CreateCondBr(cond, thenBB, elseBB)

	s.Builder.SetInsertPointAtEnd(thenBB)
	thenVal := thenFn()
	thenEnd := s.Builder.GetInsertBlock()
	s.Builder.CreateBr(mergeBB)

	s.Builder.SetInsertPointAtEnd(elseBB)
	elseVal := elseFn()
	elseEnd := s.Builder.GetInsertBlock()
	s.Builder.CreateBr(mergeBB)

	s.Builder.SetInsertPointAtEnd(mergeBB)
	phi := s.Builder.CreatePHI(s.T.RuntimeValue, "result")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi
}

// toFloatBits widens a numeric RuntimeValue's payload to a raw f64,
// branch-free: both the int-to-float conversion and the float
// reinterpretation are pure, so a select picks the right one rather than
// needing a basic block per tag.
func (s *Substrate) toFloatBits(v llvm.Value) llvm.Value {
	tag := s.RvTag(v)
	data := s.RvData(v)
	isInt := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagInt), "is_int")
	fromInt := s.Builder.CreateSIToFP(data, s.T.F64, "from_int")
	fromFloat := s.Builder.CreateBitCast(data, s.T.F64, "from_float_bits")
	return s.Builder.CreateSelect(isInt, fromInt, fromFloat, "as_float")
}

func (s *Substrate) boolToData(i1 llvm.Value) llvm.Value {
	return s.Builder.CreateZExt(i1, s.T.I64, "bool_data")
}
