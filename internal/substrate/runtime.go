package substrate

import "tinygo.org/x/go-llvm"

// buildRuntimeFunctions defines every runtime helper the compiler calls
// into: cons/car/cdr, arithmetic, comparisons, predicates, list
// operations, closures, vectors, printing, and the misc helpers.
func (s *Substrate) buildRuntimeFunctions() {
	s.buildCons()
	s.buildArithmetic()
	s.buildComparisons()
	s.buildPredicates()
	s.buildListOps()
	s.buildClosureOps()
	s.buildVectorOps()
	s.buildPrintOps()
	s.buildMisc()
}

func (s *Substrate) newRTFunc(name string, paramNames ...string) (llvm.Value, llvm.BasicBlock) {
	paramTypes := make([]llvm.Type, len(paramNames))
	for i := range paramTypes {
		paramTypes[i] = s.T.RuntimeValue
	}
	fnType := llvm.FunctionType(s.T.RuntimeValue, paramTypes, false)
	fn := llvm.AddFunction(s.Module, name, fnType)
	for i, pn := range paramNames {
		fn.Param(i).SetName(pn)
	}
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
	s.fns[name] = fn
	return fn, entry
}

// --- cons / car / cdr -------------------------------------------------

func (s *Substrate) buildCons() {
	fn, _ := s.newRTFunc("rt_cons", "a", "b")
	a, b := fn.Param(0), fn.Param(1)

	size := llvm.SizeOf(s.T.ConsCell)
	raw := s.malloc(size, "cons.raw")
	cell := s.Builder.CreateBitCast(raw, llvm.PointerType(s.T.ConsCell, 0), "cons.cell")
	s.Builder.CreateStore(a, s.gep0(s.T.ConsCell, cell, 0, "cons.car"))
	s.Builder.CreateStore(b, s.gep0(s.T.ConsCell, cell, 1, "cons.cdr"))
	s.Builder.CreateStore(llvm.ConstInt(s.T.I32, 1, false), s.gep0(s.T.ConsCell, cell, 2, "cons.rc"))

	data := s.Builder.CreatePtrToInt(raw, s.T.I64, "cons.data")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagCons), data))

	fn2, _ := s.newRTFunc("rt_car", "v")
	s.Builder.CreateRet(s.selectField(fn2, fn2.Param(0), 0))
	fn3, _ := s.newRTFunc("rt_cdr", "v")
	s.Builder.CreateRet(s.selectField(fn3, fn3.Param(0), 1))
}

// selectField returns the car (idx 0) or cdr (idx 1) of v if v is a CONS,
// else NIL. Type mismatches never trap.
func (s *Substrate) selectField(fn llvm.Value, v llvm.Value, idx int) llvm.Value {
	tag := s.RvTag(v)
	isCons := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagCons), "is_cons")
	return s.branchMergeRV(fn, isCons,
		func() llvm.Value {
			ptr := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(s.T.ConsCell, 0), "cons.ptr")
			return s.Builder.CreateLoad(s.gep0(s.T.ConsCell, ptr, idx, "field"), "field.val")
		},
		func() llvm.Value { return s.ConstNil() },
	)
}

// --- arithmetic --------------------------------------------------------

func (s *Substrate) buildArithmetic() {
	s.buildBinNumeric("rt_add",
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateAdd(a, b, "int.add") },
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateFAdd(a, b, "float.add") })
	s.buildBinNumeric("rt_sub",
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateSub(a, b, "int.sub") },
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateFSub(a, b, "float.sub") })
	s.buildBinNumeric("rt_mul",
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateMul(a, b, "int.mul") },
		func(a, b llvm.Value) llvm.Value { return s.Builder.CreateFMul(a, b, "float.mul") })

	// rt_div always produces FLOAT.
	fn, _ := s.newRTFunc("rt_div", "a", "b")
	a, b := fn.Param(0), fn.Param(1)
	fa, fb := s.toFloatBits(a), s.toFloatBits(b)
	result := s.Builder.CreateFDiv(fa, fb, "float.div")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagFloat), s.Builder.CreateBitCast(result, s.T.I64, "div.bits")))

	// rt_neg preserves tag for numeric inputs; non-numeric degrades to
	// INT(0) rather than trapping.
	fn2, _ := s.newRTFunc("rt_neg", "v")
	v := fn2.Param(0)
	tag := s.RvTag(v)
	isFloat := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagFloat), "is_float")
	isInt := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagInt), "is_int")
	intNeg := s.Builder.CreateSub(llvm.ConstInt(s.T.I64, 0, false), s.RvData(v), "int.neg")
	zero := llvm.ConstInt(s.T.I64, 0, false)
	intPart := s.Builder.CreateSelect(isInt, intNeg, zero, "int.part")
	floatNegBits := s.Builder.CreateBitCast(s.Builder.CreateFNeg(s.toFloatBits(v), "float.neg"), s.T.I64, "float.neg.bits")
	data := s.Builder.CreateSelect(isFloat, floatNegBits, intPart, "neg.data")
	resultTag := s.Builder.CreateSelect(isFloat, s.constTag(TagFloat), s.constTag(TagInt), "neg.tag")
	s.Builder.CreateRet(s.makeRV(resultTag, data))
}

// buildBinNumeric generates a binary arithmetic helper that keeps INT
// when both operands are INT and widens to FLOAT otherwise.
func (s *Substrate) buildBinNumeric(name string, intOp, floatOp func(a, b llvm.Value) llvm.Value) {
	fn, _ := s.newRTFunc(name, "a", "b")
	a, b := fn.Param(0), fn.Param(1)
	tagA, tagB := s.RvTag(a), s.RvTag(b)
	aIsInt := s.Builder.CreateICmp(llvm.IntEQ, tagA, s.constTag(TagInt), "a_is_int")
	bIsInt := s.Builder.CreateICmp(llvm.IntEQ, tagB, s.constTag(TagInt), "b_is_int")
	bothInt := s.Builder.CreateAnd(aIsInt, bIsInt, "both_int")

	intResult := intOp(s.RvData(a), s.RvData(b))
	floatResult := floatOp(s.toFloatBits(a), s.toFloatBits(b))
	floatBits := s.Builder.CreateBitCast(floatResult, s.T.I64, "float.bits")

	data := s.Builder.CreateSelect(bothInt, intResult, floatBits, "result.data")
	tag := s.Builder.CreateSelect(bothInt, s.constTag(TagInt), s.constTag(TagFloat), "result.tag")
	s.Builder.CreateRet(s.makeRV(tag, data))
}

// --- comparisons --------------------------------------------------------

func (s *Substrate) buildComparisons() {
	s.buildNumCompare("rt_num_eq", llvm.FloatOEQ)
	s.buildNumCompare("rt_num_lt", llvm.FloatOLT)
	s.buildNumCompare("rt_num_gt", llvm.FloatOGT)
	s.buildNumCompare("rt_num_lte", llvm.FloatOLE)
	s.buildNumCompare("rt_num_gte", llvm.FloatOGE)

	fn, _ := s.newRTFunc("rt_eq", "a", "b")
	a, b := fn.Param(0), fn.Param(1)
	tagEq := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(a), s.RvTag(b), "tag_eq")
	dataEq := s.Builder.CreateICmp(llvm.IntEQ, s.RvData(a), s.RvData(b), "data_eq")
	eq := s.Builder.CreateAnd(tagEq, dataEq, "eq")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagBool), s.boolToData(eq)))
}

func (s *Substrate) buildNumCompare(name string, pred llvm.FloatPredicate) {
	fn, _ := s.newRTFunc(name, "a", "b")
	a, b := fn.Param(0), fn.Param(1)
	cmp := s.Builder.CreateFCmp(pred, s.toFloatBits(a), s.toFloatBits(b), "cmp")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagBool), s.boolToData(cmp)))
}

// --- predicates ----------------------------------------------------------

func (s *Substrate) buildPredicates() {
	s.buildTagPredicate("rt_is_nil", func(tag llvm.Value) llvm.Value {
		return s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagNil), "is_nil")
	})
	s.buildTagPredicate("rt_is_cons", func(tag llvm.Value) llvm.Value {
		return s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagCons), "is_cons")
	})
	s.buildTagPredicate("rt_is_atom", func(tag llvm.Value) llvm.Value {
		return s.Builder.CreateICmp(llvm.IntNE, tag, s.constTag(TagCons), "is_atom")
	})
	s.buildTagPredicate("rt_is_number", func(tag llvm.Value) llvm.Value {
		isInt := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagInt), "is_int")
		isFloat := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagFloat), "is_float")
		return s.Builder.CreateOr(isInt, isFloat, "is_number")
	})

	fn, _ := s.newRTFunc("rt_not", "v")
	v := fn.Param(0)
	tag := s.RvTag(v)
	isNil := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagNil), "is_nil")
	isBool := s.Builder.CreateICmp(llvm.IntEQ, tag, s.constTag(TagBool), "is_bool")
	isFalseData := s.Builder.CreateICmp(llvm.IntEQ, s.RvData(v), llvm.ConstInt(s.T.I64, 0, false), "is_false_data")
	isFalseBool := s.Builder.CreateAnd(isBool, isFalseData, "is_false_bool")
	falsy := s.Builder.CreateOr(isNil, isFalseBool, "falsy")
	s.Builder.CreateRet(s.makeRV(s.constTag(TagBool), s.boolToData(falsy)))
}

func (s *Substrate) buildTagPredicate(name string, pred func(tag llvm.Value) llvm.Value) {
	fn, _ := s.newRTFunc(name, "v")
	result := pred(s.RvTag(fn.Param(0)))
	s.Builder.CreateRet(s.makeRV(s.constTag(TagBool), s.boolToData(result)))
}

// --- list ops ------------------------------------------------------------

func (s *Substrate) buildListOps() {
	s.buildLength()
	s.buildReverse()
	s.buildAppend()
	s.buildNth()
}

// loopOverList sets up the standard "iterate while tag==CONS" skeleton
// shared by length/reverse/append/nth: an entry block that falls into a
// header block holding phi nodes for the loop-carried values, a body
// block that runs while the current cell is a CONS, and an exit block
// reached once it is not. carryInit supplies the phi's initial values
// (aligned with carryTypes); step computes the next carry values from the
// current cell's car/cdr and returns them; the final carry values (valid
// in the returned exit block) are handed back to the caller to build the
// return value.
func (s *Substrate) loopOverList(fn llvm.Value, list llvm.Value, carryTypes []llvm.Type, carryInit []llvm.Value,
	step func(car, cdr llvm.Value, carry []llvm.Value) []llvm.Value) ([]llvm.Value, llvm.BasicBlock) {

	entryEnd := s.Builder.GetInsertBlock()
	headerBB := llvm.AddBasicBlock(fn, "loop.header")
	bodyBB := llvm.AddBasicBlock(fn, "loop.body")
	exitBB := llvm.AddBasicBlock(fn, "loop.exit")

	s.Builder.CreateBr(headerBB)
	s.Builder.SetInsertPointAtEnd(headerBB)

	curPhi := s.Builder.CreatePHI(s.T.RuntimeValue, "cur")
	carryPhis := make([]llvm.Value, len(carryTypes))
	for i, t := range carryTypes {
		carryPhis[i] = s.Builder.CreatePHI(t, "carry")
		carryPhis[i].AddIncoming([]llvm.Value{carryInit[i]}, []llvm.BasicBlock{entryEnd})
	}
	curPhi.AddIncoming([]llvm.Value{list}, []llvm.BasicBlock{entryEnd})

	isCons := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(curPhi), s.constTag(TagCons), "is_cons")
	s.Builder.CreateCondBr(isCons, bodyBB, exitBB)

	s.Builder.SetInsertPointAtEnd(bodyBB)
	ptr := s.Builder.CreateIntToPtr(s.RvData(curPhi), llvm.PointerType(s.T.ConsCell, 0), "cell.ptr")
	car := s.Builder.CreateLoad(s.gep0(s.T.ConsCell, ptr, 0, "cell.car"), "car")
	cdr := s.Builder.CreateLoad(s.gep0(s.T.ConsCell, ptr, 1, "cell.cdr"), "cdr")
	nextCarry := step(car, cdr, carryPhis)
	bodyEnd := s.Builder.GetInsertBlock()
	curPhi.AddIncoming([]llvm.Value{cdr}, []llvm.BasicBlock{bodyEnd})
	for i, p := range carryPhis {
		p.AddIncoming([]llvm.Value{nextCarry[i]}, []llvm.BasicBlock{bodyEnd})
	}
	s.Builder.CreateBr(headerBB)

	s.Builder.SetInsertPointAtEnd(exitBB)
	return carryPhis, exitBB
}

func (s *Substrate) buildLength() {
	fn, _ := s.newRTFunc("rt_length", "v")
	carry, _ := s.loopOverList(fn, fn.Param(0), []llvm.Type{s.T.I64}, []llvm.Value{llvm.ConstInt(s.T.I64, 0, false)},
		func(car, cdr llvm.Value, carry []llvm.Value) []llvm.Value {
			next := s.Builder.CreateAdd(carry[0], llvm.ConstInt(s.T.I64, 1, false), "count.next")
			return []llvm.Value{next}
		})
	s.Builder.CreateRet(s.makeRV(s.constTag(TagInt), carry[0]))
}

// reverse accumulates a new list by consing each visited element onto an
// accumulator, which naturally reverses order.
func (s *Substrate) buildReverse() {
	fn, _ := s.newRTFunc("rt_reverse", "v")
	nilConst := s.ConstNil()
	carry, _ := s.loopOverList(fn, fn.Param(0), []llvm.Type{s.T.RuntimeValue}, []llvm.Value{nilConst},
		func(car, cdr llvm.Value, carry []llvm.Value) []llvm.Value {
			next := s.Builder.CreateCall(s.Fn("rt_cons"), []llvm.Value{car, carry[0]}, "acc.next")
			return []llvm.Value{next}
		})
	s.Builder.CreateRet(carry[0])
}

// append copies list a structurally and attaches b as the final tail,
// iteratively, to avoid the native-stack exhaustion a recursive
// implementation would risk on deep lists. It builds the copy by first
// reversing a into an accumulator (in a's original order reversed), then
// conses each element from the accumulator onto b — two iterative passes,
// neither of which recurses.
func (s *Substrate) buildAppend() {
	fn, _ := s.newRTFunc("rt_append", "a", "b")
	a, b := fn.Param(0), fn.Param(1)
	nilConst := s.ConstNil()
	reversed, _ := s.loopOverList(fn, a, []llvm.Type{s.T.RuntimeValue}, []llvm.Value{nilConst},
		func(car, cdr llvm.Value, carry []llvm.Value) []llvm.Value {
			next := s.Builder.CreateCall(s.Fn("rt_cons"), []llvm.Value{car, carry[0]}, "rev.next")
			return []llvm.Value{next}
		})
	result, _ := s.loopOverList(fn, reversed[0], []llvm.Type{s.T.RuntimeValue}, []llvm.Value{b},
		func(car, cdr llvm.Value, carry []llvm.Value) []llvm.Value {
			next := s.Builder.CreateCall(s.Fn("rt_cons"), []llvm.Value{car, carry[0]}, "append.next")
			return []llvm.Value{next}
		})
	s.Builder.CreateRet(result[0])
}

// nth walks lst decrementing a remaining-index counter; when the counter
// reaches zero at a CONS cell, its car is the answer. Falls through to
// NIL both for an out-of-range index and for a non-list argument.
func (s *Substrate) buildNth() {
	fn, _ := s.newRTFunc("rt_nth", "lst", "idx")
	lst, idx := fn.Param(0), fn.Param(1)
	remaining := s.RvData(idx)

	entryEnd := s.Builder.GetInsertBlock()
	headerBB := llvm.AddBasicBlock(fn, "nth.header")
	foundBB := llvm.AddBasicBlock(fn, "nth.found")
	stepBB := llvm.AddBasicBlock(fn, "nth.step")
	missBB := llvm.AddBasicBlock(fn, "nth.miss")

	s.Builder.CreateBr(headerBB)
	s.Builder.SetInsertPointAtEnd(headerBB)
	curPhi := s.Builder.CreatePHI(s.T.RuntimeValue, "cur")
	remPhi := s.Builder.CreatePHI(s.T.I64, "remaining")
	curPhi.AddIncoming([]llvm.Value{lst}, []llvm.BasicBlock{entryEnd})
	remPhi.AddIncoming([]llvm.Value{remaining}, []llvm.BasicBlock{entryEnd})

	isCons := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(curPhi), s.constTag(TagCons), "is_cons")
	s.Builder.CreateCondBr(isCons, stepBB, missBB)

	s.Builder.SetInsertPointAtEnd(stepBB)
	ptr := s.Builder.CreateIntToPtr(s.RvData(curPhi), llvm.PointerType(s.T.ConsCell, 0), "cell.ptr")
	car := s.Builder.CreateLoad(s.gep0(s.T.ConsCell, ptr, 0, "cell.car"), "car")
	cdr := s.Builder.CreateLoad(s.gep0(s.T.ConsCell, ptr, 1, "cell.cdr"), "cdr")
	isZero := s.Builder.CreateICmp(llvm.IntEQ, remPhi, llvm.ConstInt(s.T.I64, 0, false), "is_zero")
	remNext := s.Builder.CreateSub(remPhi, llvm.ConstInt(s.T.I64, 1, false), "rem.next")
	stepEnd := s.Builder.GetInsertBlock()
	s.Builder.CreateCondBr(isZero, foundBB, headerBB)
	curPhi.AddIncoming([]llvm.Value{cdr}, []llvm.BasicBlock{stepEnd})
	remPhi.AddIncoming([]llvm.Value{remNext}, []llvm.BasicBlock{stepEnd})

	s.Builder.SetInsertPointAtEnd(foundBB)
	s.Builder.CreateRet(car)

	s.Builder.SetInsertPointAtEnd(missBB)
	s.Builder.CreateRet(s.ConstNil())
}
