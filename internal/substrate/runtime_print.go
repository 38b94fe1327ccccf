package substrate

import "tinygo.org/x/go-llvm"

// buildPrintOps defines print_value (the tag-dispatch printer), print_list
// (cons-chain printing with interior spaces and a dotted tail), and the
// rt_print/rt_println/rt_print_space/rt_print_newline wrappers the
// compiler calls directly.
func (s *Substrate) buildPrintOps() {
	t := s.T

	fmtClosure := s.addStringConst("fmt_closure", "#<closure>")
	fmtVecOpen := s.addStringConst("fmt_vector_open", "#(")
	fmtVecClose := s.addStringConst("fmt_vector_close", ")")

	printValueTy := llvm.FunctionType(t.Void, []llvm.Type{t.RuntimeValue}, false)
	printValue := llvm.AddFunction(s.Module, "print_value", printValueTy)
	s.fns["print_value"] = printValue

	printListTy := llvm.FunctionType(t.Void, []llvm.Type{t.RuntimeValue}, false)
	printList := llvm.AddFunction(s.Module, "print_list", printListTy)
	s.fns["print_list"] = printList

	s.buildPrintValue(printValue, fmtClosure, fmtVecOpen, fmtVecClose)
	s.buildPrintList(printList)

	// rt_print(v) prints v without a trailing newline and returns v.
	fn, _ := s.newRTFunc("rt_print", "v")
	v := fn.Param(0)
	s.Builder.CreateCall(printValue, []llvm.Value{v}, "")
	s.Builder.CreateRet(v)

	// rt_println(v) prints v followed by a newline and returns v.
	fn2, _ := s.newRTFunc("rt_println", "v")
	v2 := fn2.Param(0)
	s.Builder.CreateCall(printValue, []llvm.Value{v2}, "")
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtNewline}, "")
	s.Builder.CreateRet(v2)

	voidTy := llvm.FunctionType(t.Void, nil, false)
	spaceFn := llvm.AddFunction(s.Module, "rt_print_space", voidTy)
	s.fns["rt_print_space"] = spaceFn
	entry := llvm.AddBasicBlock(spaceFn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtSpace}, "")
	s.Builder.CreateRetVoid()

	nlFn := llvm.AddFunction(s.Module, "rt_print_newline", voidTy)
	s.fns["rt_print_newline"] = nlFn
	entry2 := llvm.AddBasicBlock(nlFn, "entry")
	s.Builder.SetInsertPointAtEnd(entry2)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtNewline}, "")
	s.Builder.CreateRetVoid()
}

// addStringConst defines a private string global and returns an i8*
// constant to it. Called from buildPrintOps before print_value/print_list
// exist, so there is no active insertion block for a builder-side
// CreateGlobalStringPtr; a constant bitcast lowers the array-typed
// global to i8* without needing one.
func (s *Substrate) addStringConst(name, text string) llvm.Value {
	data := llvm.ConstString(text+"\x00", false)
	g := llvm.AddGlobal(s.Module, data.Type(), name)
	g.SetInitializer(data)
	g.SetGlobalConstant(true)
	g.SetLinkage(llvm.PrivateLinkage)
	return llvm.ConstBitCast(g, s.T.Ptr)
}

func (s *Substrate) buildPrintValue(fn llvm.Value, fmtClosure, fmtVecOpen, fmtVecClose llvm.Value) {
	t := s.T
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
	v := fn.Param(0)
	tag := s.RvTag(v)

	nilBB := llvm.AddBasicBlock(fn, "print.nil")
	boolBB := llvm.AddBasicBlock(fn, "print.bool")
	intBB := llvm.AddBasicBlock(fn, "print.int")
	floatBB := llvm.AddBasicBlock(fn, "print.float")
	symBB := llvm.AddBasicBlock(fn, "print.symbol")
	stringBB := llvm.AddBasicBlock(fn, "print.string")
	consBB := llvm.AddBasicBlock(fn, "print.cons")
	closureBB := llvm.AddBasicBlock(fn, "print.closure")
	vectorBB := llvm.AddBasicBlock(fn, "print.vector")
	doneBB := llvm.AddBasicBlock(fn, "print.done")

	sw := s.Builder.CreateSwitch(tag, doneBB, 8)
	sw.AddCase(s.constTag(TagNil), nilBB)
	sw.AddCase(s.constTag(TagBool), boolBB)
	sw.AddCase(s.constTag(TagInt), intBB)
	sw.AddCase(s.constTag(TagFloat), floatBB)
	sw.AddCase(s.constTag(TagSymbol), symBB)
	sw.AddCase(s.constTag(TagString), stringBB)
	sw.AddCase(s.constTag(TagCons), consBB)
	sw.AddCase(s.constTag(TagClosure), closureBB)
	sw.AddCase(s.constTag(TagVector), vectorBB)

	s.Builder.SetInsertPointAtEnd(nilBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtNil}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(boolBB)
	isFalse := s.Builder.CreateICmp(llvm.IntEQ, s.RvData(v), llvm.ConstInt(t.I64, 0, false), "is_false")
	chosen := s.Builder.CreateSelect(isFalse, s.fmtFalse, s.fmtTrue, "bool.fmt")
	s.Builder.CreateCall(s.printfFn, []llvm.Value{chosen}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(intBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtInt, s.RvData(v)}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(floatBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtFloat, s.toFloatBits(v)}, "")
	s.Builder.CreateBr(doneBB)

	// Symbols carry no string at runtime (the interner lives on the Go
	// side only); the compiled program prints the raw opaque key.
	s.Builder.SetInsertPointAtEnd(symBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtInt, s.RvData(v)}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(stringBB)
	strPtr := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Str, 0), "str.ptr")
	dataPtr := s.Builder.CreateLoad(s.gep0(t.Str, strPtr, 0, "str.data"), "str.data.val")
	length := s.Builder.CreateLoad(s.gep0(t.Str, strPtr, 1, "str.len"), "str.len.val")
	len32 := s.Builder.CreateTrunc(length, t.I32, "str.len32")
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtStr, len32, dataPtr}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(consBB)
	s.Builder.CreateCall(s.fns["print_list"], []llvm.Value{v}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(closureBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{fmtClosure}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(vectorBB)
	vecPtr := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.Vector, 0), "vec.ptr")
	vlen := s.Builder.CreateLoad(s.gep0(t.Vector, vecPtr, 1, "vec.len"), "vec.len.val")
	elems := s.Builder.CreateLoad(s.gep0(t.Vector, vecPtr, 0, "vec.elems"), "vec.elems.val")
	typed := s.Builder.CreateBitCast(elems, llvm.PointerType(t.RuntimeValue, 0), "vec.elems.typed")
	s.Builder.CreateCall(s.printfFn, []llvm.Value{fmtVecOpen}, "")

	loopEntry := s.Builder.GetInsertBlock()
	headerBB := llvm.AddBasicBlock(fn, "vec.header")
	bodyBB := llvm.AddBasicBlock(fn, "vec.body")
	exitBB := llvm.AddBasicBlock(fn, "vec.exit")
	s.Builder.CreateBr(headerBB)

	s.Builder.SetInsertPointAtEnd(headerBB)
	idxPhi := s.Builder.CreatePHI(t.I64, "vec.idx")
	idxPhi.AddIncoming([]llvm.Value{llvm.ConstInt(t.I64, 0, false)}, []llvm.BasicBlock{loopEntry})
	more := s.Builder.CreateICmp(llvm.IntSLT, idxPhi, vlen, "vec.more")
	s.Builder.CreateCondBr(more, bodyBB, exitBB)

	s.Builder.SetInsertPointAtEnd(bodyBB)
	notFirst := s.Builder.CreateICmp(llvm.IntSGT, idxPhi, llvm.ConstInt(t.I64, 0, false), "vec.not_first")
	spaceThenBB := llvm.AddBasicBlock(fn, "vec.space")
	afterSpaceBB := llvm.AddBasicBlock(fn, "vec.after_space")
	s.Builder.CreateCondBr(notFirst, spaceThenBB, afterSpaceBB)
	s.Builder.SetInsertPointAtEnd(spaceThenBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtSpace}, "")
	s.Builder.CreateBr(afterSpaceBB)
	s.Builder.SetInsertPointAtEnd(afterSpaceBB)
	elemPtr := s.Builder.CreateGEP(typed, []llvm.Value{idxPhi}, "vec.elem.ptr")
	elem := s.Builder.CreateLoad(elemPtr, "vec.elem")
	s.Builder.CreateCall(fn, []llvm.Value{elem}, "")
	nextIdx := s.Builder.CreateAdd(idxPhi, llvm.ConstInt(t.I64, 1, false), "vec.idx.next")
	bodyEnd := s.Builder.GetInsertBlock()
	idxPhi.AddIncoming([]llvm.Value{nextIdx}, []llvm.BasicBlock{bodyEnd})
	s.Builder.CreateBr(headerBB)

	s.Builder.SetInsertPointAtEnd(exitBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{fmtVecClose}, "")
	s.Builder.CreateBr(doneBB)

	s.Builder.SetInsertPointAtEnd(doneBB)
	s.Builder.CreateRetVoid()
}

func (s *Substrate) buildPrintList(fn llvm.Value) {
	t := s.T
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)
	v := fn.Param(0)

	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtConsOpen}, "")
	ptr := s.Builder.CreateIntToPtr(s.RvData(v), llvm.PointerType(t.ConsCell, 0), "cell.ptr")
	car0 := s.Builder.CreateLoad(s.gep0(t.ConsCell, ptr, 0, "cell.car"), "car0")
	cdr0 := s.Builder.CreateLoad(s.gep0(t.ConsCell, ptr, 1, "cell.cdr"), "cdr0")
	s.Builder.CreateCall(s.fns["print_value"], []llvm.Value{car0}, "")

	entryEnd := s.Builder.GetInsertBlock()
	headerBB := llvm.AddBasicBlock(fn, "list.header")
	bodyBB := llvm.AddBasicBlock(fn, "list.body")
	tailBB := llvm.AddBasicBlock(fn, "list.tail")
	dotBB := llvm.AddBasicBlock(fn, "list.dot")
	closeBB := llvm.AddBasicBlock(fn, "list.close")

	s.Builder.CreateBr(headerBB)
	s.Builder.SetInsertPointAtEnd(headerBB)
	curPhi := s.Builder.CreatePHI(t.RuntimeValue, "list.cur")
	curPhi.AddIncoming([]llvm.Value{cdr0}, []llvm.BasicBlock{entryEnd})
	isCons := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(curPhi), s.constTag(TagCons), "is_cons")
	s.Builder.CreateCondBr(isCons, bodyBB, tailBB)

	s.Builder.SetInsertPointAtEnd(bodyBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtSpace}, "")
	curPtr := s.Builder.CreateIntToPtr(s.RvData(curPhi), llvm.PointerType(t.ConsCell, 0), "cur.ptr")
	curCar := s.Builder.CreateLoad(s.gep0(t.ConsCell, curPtr, 0, "cur.car"), "cur.car.val")
	curCdr := s.Builder.CreateLoad(s.gep0(t.ConsCell, curPtr, 1, "cur.cdr"), "cur.cdr.val")
	s.Builder.CreateCall(s.fns["print_value"], []llvm.Value{curCar}, "")
	bodyEnd := s.Builder.GetInsertBlock()
	curPhi.AddIncoming([]llvm.Value{curCdr}, []llvm.BasicBlock{bodyEnd})
	s.Builder.CreateBr(headerBB)

	s.Builder.SetInsertPointAtEnd(tailBB)
	isNil := s.Builder.CreateICmp(llvm.IntEQ, s.RvTag(curPhi), s.constTag(TagNil), "is_nil")
	s.Builder.CreateCondBr(isNil, closeBB, dotBB)

	s.Builder.SetInsertPointAtEnd(dotBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtDot}, "")
	s.Builder.CreateCall(s.fns["print_value"], []llvm.Value{curPhi}, "")
	s.Builder.CreateBr(closeBB)

	s.Builder.SetInsertPointAtEnd(closeBB)
	s.Builder.CreateCall(s.printfFn, []llvm.Value{s.fmtConsClose}, "")
	s.Builder.CreateRetVoid()
}
