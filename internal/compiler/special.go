package compiler

import (
	"tinygo.org/x/go-llvm"

	"consair/internal/substrate"
	"consair/internal/symbol"
	"consair/internal/value"
)

// compileQuote recursively builds the quoted structure at runtime:
// quoted atoms lower as constants, quoted conses build via rt_cons, and
// quoted lists fold right-to-left the same way the `list` primitive
// does.
func (c *Compiler) compileQuote(v *value.Value) (llvm.Value, error) {
	switch v.Kind {
	case value.KindNil:
		return c.S.ConstNil(), nil
	case value.KindBool:
		return c.S.ConstBool(v.Bool), nil
	case value.KindInt:
		return c.S.ConstInt(v.Int), nil
	case value.KindFloat:
		return c.S.ConstFloat(v.Float), nil
	case value.KindSymbol:
		return c.S.ConstSymbol(v.Sym.Key()), nil
	case value.KindString:
		return c.compileStringLiteral(v)
	case value.KindCons:
		car, err := c.compileQuote(v.Car)
		if err != nil {
			return llvm.Value{}, err
		}
		cdr, err := c.compileQuote(v.Cdr)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.S.Builder.CreateCall(c.S.Fn("rt_cons"), []llvm.Value{car, cdr}, "quote.cons"), nil
	default:
		return llvm.Value{}, errUnsupported(v, "cannot quote a %s", v.Kind)
	}
}

// compileIf lowers `(if test then [else])` as a two-way branch merging
// on a phi. tail propagates to both the then and else branches — the
// TCO contract.
func (c *Compiler) compileIf(args []*value.Value, env *Env, tail bool, form *value.Value) (llvm.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return llvm.Value{}, errSyntax(form, "if expects (if test then [else])")
	}
	testV, err := c.compileValue(args[0], env, false)
	if err != nil {
		return llvm.Value{}, err
	}
	cond := c.truthy(testV)

	fn := c.currentFn()
	thenBB := llvm.AddBasicBlock(fn, "if.then")
	elseBB := llvm.AddBasicBlock(fn, "if.else")
	mergeBB := llvm.AddBasicBlock(fn, "if.merge")
	c.S.Builder.CreateCondBr(cond, thenBB, elseBB)

	c.S.Builder.SetInsertPointAtEnd(thenBB)
	thenVal, err := c.compileValue(args[1], env, tail)
	if err != nil {
		return llvm.Value{}, err
	}
	thenEnd := c.S.Builder.GetInsertBlock()
	c.S.Builder.CreateBr(mergeBB)

	c.S.Builder.SetInsertPointAtEnd(elseBB)
	var elseVal llvm.Value
	if len(args) == 3 {
		elseVal, err = c.compileValue(args[2], env, tail)
		if err != nil {
			return llvm.Value{}, err
		}
	} else {
		elseVal = c.S.ConstNil()
	}
	elseEnd := c.S.Builder.GetInsertBlock()
	c.S.Builder.CreateBr(mergeBB)

	c.S.Builder.SetInsertPointAtEnd(mergeBB)
	phi := c.S.Builder.CreatePHI(c.S.T.RuntimeValue, "if.result")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi, nil
}

// compileCond lowers `(cond (p1 r1) ... (pn rn))` as a chain of basic
// blocks, each testing the next clause only if every prior test was
// falsy, converging on a merge block with a phi gathering every clause's
// result. A literal `t` test short-circuits as unconditional
// fallthrough; an empty cond (no clause taken) yields NIL.
func (c *Compiler) compileCond(clauses []*value.Value, env *Env, tail bool, form *value.Value) (llvm.Value, error) {
	if len(clauses) == 0 {
		return c.S.ConstNil(), nil
	}
	fn := c.currentFn()
	mergeBB := llvm.AddBasicBlock(fn, "cond.merge")

	var incomingVals []llvm.Value
	var incomingBlocks []llvm.BasicBlock

	for i, clause := range clauses {
		items, proper := clause.Slice()
		if !proper || len(items) != 2 {
			return llvm.Value{}, errSyntax(clause, "cond clause must have exactly a test and a result")
		}
		test, result := items[0], items[1]

		isLast := i == len(clauses)-1
		isLiteralT := test.Kind == value.KindSymbol && test.Sym == symbol.T

		if isLiteralT {
			resVal, err := c.compileValue(result, env, tail)
			if err != nil {
				return llvm.Value{}, err
			}
			resEnd := c.S.Builder.GetInsertBlock()
			c.S.Builder.CreateBr(mergeBB)
			incomingVals = append(incomingVals, resVal)
			incomingBlocks = append(incomingBlocks, resEnd)
			break
		}

		testVal, err := c.compileValue(test, env, false)
		if err != nil {
			return llvm.Value{}, err
		}
		cond := c.truthy(testVal)

		resultBB := llvm.AddBasicBlock(fn, "cond.result")
		nextBB := llvm.AddBasicBlock(fn, "cond.next")
		c.S.Builder.CreateCondBr(cond, resultBB, nextBB)

		c.S.Builder.SetInsertPointAtEnd(resultBB)
		resVal, err := c.compileValue(result, env, tail)
		if err != nil {
			return llvm.Value{}, err
		}
		resEnd := c.S.Builder.GetInsertBlock()
		c.S.Builder.CreateBr(mergeBB)
		incomingVals = append(incomingVals, resVal)
		incomingBlocks = append(incomingBlocks, resEnd)

		c.S.Builder.SetInsertPointAtEnd(nextBB)
		if isLast {
			// No clause matched: nextBB is a distinct fallthrough block,
			// never mergeBB itself, so it can hold its own terminator and
			// serve as a genuine phi predecessor.
			incomingVals = append(incomingVals, c.S.ConstNil())
			incomingBlocks = append(incomingBlocks, nextBB)
			c.S.Builder.CreateBr(mergeBB)
		}
	}

	c.S.Builder.SetInsertPointAtEnd(mergeBB)
	phi := c.S.Builder.CreatePHI(c.S.T.RuntimeValue, "cond.result")
	phi.AddIncoming(incomingVals, incomingBlocks)
	return phi, nil
}

// truthy computes the BOOL truthiness test: falsy iff NIL or BOOL(0).
func (c *Compiler) truthy(v llvm.Value) llvm.Value {
	tag := c.S.RvTag(v)
	isNil := c.S.Builder.CreateICmp(llvm.IntEQ, tag, c.S.ConstTag(substrate.TagNil), "is_nil")
	isBool := c.S.Builder.CreateICmp(llvm.IntEQ, tag, c.S.ConstTag(substrate.TagBool), "is_bool")
	isZero := c.S.Builder.CreateICmp(llvm.IntEQ, c.S.RvData(v), llvm.ConstInt(c.S.T.I64, 0, false), "data_zero")
	falseBool := c.S.Builder.CreateAnd(isBool, isZero, "false_bool")
	falsy := c.S.Builder.CreateOr(isNil, falseBool, "falsy")
	return c.S.Builder.CreateNot(falsy, "truthy")
}

// currentFn recovers the function being built from the builder's
// current insertion point.
func (c *Compiler) currentFn() llvm.Value {
	return c.S.Builder.GetInsertBlock().Parent()
}
