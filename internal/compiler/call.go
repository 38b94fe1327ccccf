package compiler

import (
	"tinygo.org/x/go-llvm"

	"consair/internal/symbol"
	"consair/internal/value"
)

// compileCall dispatches a Cons in operator position: the special forms
// first, then the three call-site shapes the language supports (direct
// named call, inline lambda/label, indirect closure call).
func (c *Compiler) compileCall(v *value.Value, env *Env, tail bool) (llvm.Value, error) {
	items, proper := v.Slice()
	if !proper {
		return llvm.Value{}, errSyntax(v, "cannot call an improper list")
	}
	op, args := items[0], items[1:]

	switch op.Kind {
	case value.KindSymbol:
		return c.compileSymbolOperatorCall(v, op, args, env, tail)
	case value.KindCons:
		return c.compileConsOperatorCall(v, op, args, env, tail)
	default:
		return llvm.Value{}, errSyntax(v, "invalid call operator")
	}
}

func (c *Compiler) compileSymbolOperatorCall(form, op *value.Value, args []*value.Value, env *Env, tail bool) (llvm.Value, error) {
	switch op.Sym {
	case symbol.Quote:
		if len(args) != 1 {
			return llvm.Value{}, errSyntax(form, "quote expects exactly one operand")
		}
		return c.compileQuote(args[0])
	case symbol.Cond:
		return c.compileCond(args, env, tail, form)
	case symbol.If:
		return c.compileIf(args, env, tail, form)
	case symbol.Lambda:
		if len(args) != 2 {
			return llvm.Value{}, errSyntax(form, "lambda expects (lambda (params) body)")
		}
		return c.compileLambdaValue(form, args[0], args[1], env)
	case symbol.Label:
		return llvm.Value{}, errSyntax(form, "label must either appear at top level or be the operator of a call")
	}

	if prim, ok := primitives[op.Sym.Key()]; ok {
		return prim(c, form, args, env)
	}
	if entry, ok := c.fnTable[op.Sym.Key()]; ok {
		return c.compileDirectCall(form, entry, args, env, tail)
	}
	if sv, ok := env.Lookup(op.Sym.Key()); ok {
		return c.compileIndirectCall(form, sv, args, env)
	}
	return llvm.Value{}, errUnbound(form, op.Sym.Name())
}

func (c *Compiler) compileConsOperatorCall(form, op *value.Value, args []*value.Value, env *Env, tail bool) (llvm.Value, error) {
	opItems, opProper := op.Slice()
	if opProper && len(opItems) == 3 && opItems[0].Kind == value.KindSymbol {
		switch opItems[0].Sym {
		case symbol.Lambda:
			return c.compileLetLambda(form, opItems[1], opItems[2], args, env, tail)
		case symbol.Label:
			return c.compileInlineLabel(form, opItems[1], opItems[2], args, env, tail)
		}
	}
	opVal, err := c.compileValue(op, env, false)
	if err != nil {
		return llvm.Value{}, err
	}
	return c.compileIndirectCall(form, opVal, args, env)
}

// compileDirectCall emits a direct LLVM call of matching arity to a
// fn_table entry. A tail position gets the `tail` call annotation so
// LLVM can perform the actual tail-call elimination.
func (c *Compiler) compileDirectCall(form *value.Value, entry *fnEntry, args []*value.Value, env *Env, tail bool) (llvm.Value, error) {
	if len(args) != entry.arity {
		return llvm.Value{}, errArity(form, "expected %d argument(s), got %d", entry.arity, len(args))
	}
	argVals := make([]llvm.Value, len(args))
	for i, a := range args {
		av, err := c.compileValue(a, env, false)
		if err != nil {
			return llvm.Value{}, err
		}
		argVals[i] = av
	}
	call := c.S.Builder.CreateCall(entry.fn, argVals, "call")
	if tail {
		call.SetTailCall(true)
	}
	return call, nil
}

// compileIndirectCall implements the indirect closure call site: stack
// arguments, retrieve the function pointer, reconstruct the captured
// environment through the generic accessor API, and invoke indirectly
// with the uniform (env, args, n) signature. Arity checking is deferred
// to the callee — the only call site where that is true.
func (c *Compiler) compileIndirectCall(form *value.Value, closureVal llvm.Value, args []*value.Value, env *Env) (llvm.Value, error) {
	argVals := make([]llvm.Value, len(args))
	for i, a := range args {
		av, err := c.compileValue(a, env, false)
		if err != nil {
			return llvm.Value{}, err
		}
		argVals[i] = av
	}

	var argsPtr llvm.Value
	if len(argVals) == 0 {
		argsPtr = llvm.ConstPointerNull(c.S.T.Ptr)
	} else {
		arrTy := llvm.ArrayType(c.S.T.RuntimeValue, len(argVals))
		arr := c.S.Builder.CreateAlloca(arrTy, "call.args.arr")
		zero := llvm.ConstInt(c.S.T.I32, 0, false)
		for i, v := range argVals {
			idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
			slot := c.S.Builder.CreateGEP(arr, []llvm.Value{zero, idx}, "call.args.slot")
			c.S.Builder.CreateStore(v, slot)
		}
		argsPtr = c.S.Builder.CreateBitCast(arr, c.S.T.Ptr, "call.args.ptr")
	}
	numArgs := llvm.ConstInt(c.S.T.I32, uint64(len(argVals)), false)

	fnPtr := c.S.Builder.CreateCall(c.S.Fn("rt_closure_fn_ptr"), []llvm.Value{closureVal}, "call.fnptr")
	envSize := c.S.Builder.CreateCall(c.S.Fn("rt_closure_env_size"), []llvm.Value{closureVal}, "call.envsize")
	envPtr := c.reconstructEnv(closureVal, envSize)

	typedFn := c.S.Builder.CreateBitCast(fnPtr, llvm.PointerType(c.S.T.ClosureFn, 0), "call.fn.typed")
	return c.S.Builder.CreateCall(typedFn, []llvm.Value{envPtr, argsPtr, numArgs}, "call.result"), nil
}

// reconstructEnv copies envSize captured values out of closureVal one at
// a time via rt_closure_env_get into a freshly allocated stack buffer,
// yielding a null pointer when envSize is zero.
func (c *Compiler) reconstructEnv(closureVal, envSize llvm.Value) llvm.Value {
	fn := c.currentFn()
	arr := c.S.Builder.CreateArrayAlloca(c.S.T.RuntimeValue, envSize, "call.env.arr")

	entryEnd := c.S.Builder.GetInsertBlock()
	headerBB := llvm.AddBasicBlock(fn, "envcopy.header")
	bodyBB := llvm.AddBasicBlock(fn, "envcopy.body")
	exitBB := llvm.AddBasicBlock(fn, "envcopy.exit")
	c.S.Builder.CreateBr(headerBB)

	c.S.Builder.SetInsertPointAtEnd(headerBB)
	iPhi := c.S.Builder.CreatePHI(c.S.T.I32, "i")
	iPhi.AddIncoming([]llvm.Value{llvm.ConstInt(c.S.T.I32, 0, false)}, []llvm.BasicBlock{entryEnd})
	hasMore := c.S.Builder.CreateICmp(llvm.IntULT, iPhi, envSize, "has_more")
	c.S.Builder.CreateCondBr(hasMore, bodyBB, exitBB)

	c.S.Builder.SetInsertPointAtEnd(bodyBB)
	elem := c.S.Builder.CreateCall(c.S.Fn("rt_closure_env_get"), []llvm.Value{closureVal, iPhi}, "envcopy.val")
	slot := c.S.Builder.CreateGEP(arr, []llvm.Value{iPhi}, "envcopy.slot")
	c.S.Builder.CreateStore(elem, slot)
	next := c.S.Builder.CreateAdd(iPhi, llvm.ConstInt(c.S.T.I32, 1, false), "i.next")
	bodyEnd := c.S.Builder.GetInsertBlock()
	iPhi.AddIncoming([]llvm.Value{next}, []llvm.BasicBlock{bodyEnd})
	c.S.Builder.CreateBr(headerBB)

	c.S.Builder.SetInsertPointAtEnd(exitBB)
	isZero := c.S.Builder.CreateICmp(llvm.IntEQ, envSize, llvm.ConstInt(c.S.T.I32, 0, false), "env_is_zero")
	arrPtr := c.S.Builder.CreateBitCast(arr, c.S.T.Ptr, "call.env.ptr")
	return c.S.Builder.CreateSelect(isZero, llvm.ConstPointerNull(c.S.T.Ptr), arrPtr, "call.env.final")
}
