package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"consair/internal/symbol"
	"consair/internal/value"
)

// paramSymbols validates and extracts the parameter symbols of a
// `(lambda (p1 p2 ...) body)` form.
func paramSymbols(params *value.Value, form *value.Value) ([]*value.Value, error) {
	items, proper := params.Slice()
	if !proper {
		return nil, errSyntax(form, "lambda parameter list must be a proper list of symbols")
	}
	for _, p := range items {
		if p.Kind != value.KindSymbol {
			return nil, errSyntax(form, "lambda parameters must be symbols")
		}
	}
	return items, nil
}

// compileLambdaValue performs closure conversion: it computes the free
// variables of body (ignoring parameters, builtins, and fn_table names),
// generates a fresh function of the uniform closure signature
// (env_ptr, args_ptr, num_args) -> RuntimeValue, and at the original
// call site builds a stack array of the captured values and invokes
// rt_make_closure.
func (c *Compiler) compileLambdaValue(form *value.Value, paramsForm, body *value.Value, env *Env) (llvm.Value, error) {
	params, err := paramSymbols(paramsForm, form)
	if err != nil {
		return llvm.Value{}, err
	}

	bound := make(map[uint64]bool, len(params))
	for _, p := range params {
		bound[p.Sym.Key()] = true
	}
	captureKeys := c.freeVariables(body, bound)

	capturedVals := make([]llvm.Value, len(captureKeys))
	for i, key := range captureKeys {
		sv, ok := env.Lookup(key)
		if !ok {
			return llvm.Value{}, errUnbound(form, symbol.FromKey(key).Name())
		}
		capturedVals[i] = sv
	}

	fnName := c.names.Next("closure")
	fn := llvm.AddFunction(c.S.Module, fnName, c.S.T.ClosureFn)
	envParam, argsParam, _ := fn.Param(0), fn.Param(1), fn.Param(2)
	envParam.SetName("env")
	argsParam.SetName("args")
	fn.Param(2).SetName("num_args")

	callerBB := c.S.Builder.GetInsertBlock()

	entry := llvm.AddBasicBlock(fn, "entry")
	c.S.Builder.SetInsertPointAtEnd(entry)

	bindings := make(map[uint64]llvm.Value, len(params)+len(captureKeys))
	if len(captureKeys) > 0 {
		typedEnv := c.S.Builder.CreateBitCast(envParam, llvm.PointerType(c.S.T.RuntimeValue, 0), "env.typed")
		for i, key := range captureKeys {
			idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
			ptr := c.S.Builder.CreateGEP(typedEnv, []llvm.Value{idx}, "capture.ptr")
			bindings[key] = c.S.Builder.CreateLoad(ptr, "capture.val")
		}
	}
	if len(params) > 0 {
		typedArgs := c.S.Builder.CreateBitCast(argsParam, llvm.PointerType(c.S.T.RuntimeValue, 0), "args.typed")
		for i, p := range params {
			idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
			ptr := c.S.Builder.CreateGEP(typedArgs, []llvm.Value{idx}, "param.ptr")
			bindings[p.Sym.Key()] = c.S.Builder.CreateLoad(ptr, "param.val")
		}
	}

	bodyEnv := (&Env{}).Extend(bindings)
	result, err := c.compileValue(body, bodyEnv, true)
	if err != nil {
		return llvm.Value{}, err
	}
	c.S.Builder.CreateRet(result)

	c.S.Builder.SetInsertPointAtEnd(callerBB)
	return c.buildClosureValue(fn, capturedVals)
}

// buildClosureValue stores capturedVals into a stack array (or passes a
// null pointer when there are none) and calls rt_make_closure.
func (c *Compiler) buildClosureValue(fn llvm.Value, capturedVals []llvm.Value) (llvm.Value, error) {
	fnPtr := c.S.Builder.CreateBitCast(fn, c.S.T.Ptr, "closure.fnptr")
	var envPtr llvm.Value
	if len(capturedVals) == 0 {
		envPtr = llvm.ConstPointerNull(c.S.T.Ptr)
	} else {
		arr := c.S.Builder.CreateAlloca(llvm.ArrayType(c.S.T.RuntimeValue, len(capturedVals)), "closure.env.arr")
		for i, v := range capturedVals {
			idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
			zero := llvm.ConstInt(c.S.T.I32, 0, false)
			slot := c.S.Builder.CreateGEP(arr, []llvm.Value{zero, idx}, "closure.env.slot")
			c.S.Builder.CreateStore(v, slot)
		}
		envPtr = c.S.Builder.CreateBitCast(arr, c.S.T.Ptr, "closure.env.ptr")
	}
	envSize := llvm.ConstInt(c.S.T.I32, uint64(len(capturedVals)), false)
	return c.S.Builder.CreateCall(c.S.Fn("rt_make_closure"),
		[]llvm.Value{fnPtr, envPtr, envSize}, "closure.val"), nil
}

// compileLetLambda implements `((lambda (p...) body) a...)`: a let
// binding where parameters are SSA-bound from already-compiled argument
// values and the body inherits tail.
func (c *Compiler) compileLetLambda(form *value.Value, paramsForm, body *value.Value, argForms []*value.Value, env *Env, tail bool) (llvm.Value, error) {
	params, err := paramSymbols(paramsForm, form)
	if err != nil {
		return llvm.Value{}, err
	}
	if len(params) != len(argForms) {
		return llvm.Value{}, errArity(form, "lambda expects %d argument(s), got %d", len(params), len(argForms))
	}
	bindings := make(map[uint64]llvm.Value, len(params))
	for i, p := range params {
		av, err := c.compileValue(argForms[i], env, false)
		if err != nil {
			return llvm.Value{}, err
		}
		bindings[p.Sym.Key()] = av
	}
	return c.compileValue(body, env.Extend(bindings), tail)
}

// compileInlineLabel implements `((label name (lambda params body)) a...)`:
// generate a uniquely named LLVM function, register it in fn_table so
// the body can call itself recursively, compile the body with
// tail=true, then compile the initial call.
func (c *Compiler) compileInlineLabel(form *value.Value, nameForm, lambdaForm *value.Value, argForms []*value.Value, env *Env, tail bool) (llvm.Value, error) {
	if nameForm.Kind != value.KindSymbol {
		return llvm.Value{}, errSyntax(form, "label name must be a symbol")
	}
	lItems, lProper := lambdaForm.Slice()
	if !lProper || len(lItems) != 3 || lItems[0].Kind != value.KindSymbol || lItems[0].Sym != symbol.Lambda {
		return llvm.Value{}, errSyntax(form, "label second operand must be a lambda")
	}
	params, err := paramSymbols(lItems[1], form)
	if err != nil {
		return llvm.Value{}, err
	}
	if len(params) != len(argForms) {
		return llvm.Value{}, errArity(form, "%s expects %d argument(s), got %d", nameForm.Sym.Name(), len(params), len(argForms))
	}

	fnName := c.names.Next(fmt.Sprintf("label.%s", nameForm.Sym.Name()))
	paramTypes := make([]llvm.Type, len(params))
	for i := range paramTypes {
		paramTypes[i] = c.S.T.RuntimeValue
	}
	fnTy := llvm.FunctionType(c.S.T.RuntimeValue, paramTypes, false)
	fn := llvm.AddFunction(c.S.Module, fnName, fnTy)
	for i, p := range params {
		fn.Param(i).SetName(p.Sym.Name())
	}

	paramKeys := make([]uint64, len(params))
	for i, p := range params {
		paramKeys[i] = p.Sym.Key()
	}
	entry := &fnEntry{fn: fn, arity: len(params), params: paramKeys, body: lItems[2]}
	prevEntry, hadPrev := c.fnTable[nameForm.Sym.Key()]
	c.fnTable[nameForm.Sym.Key()] = entry
	defer func() {
		if hadPrev {
			c.fnTable[nameForm.Sym.Key()] = prevEntry
		} else {
			delete(c.fnTable, nameForm.Sym.Key())
		}
	}()

	if err := c.compileFunctionBody(fn, params, lItems[2]); err != nil {
		return llvm.Value{}, err
	}

	return c.compileDirectCall(form, entry, argForms, env, tail)
}

// compileFunctionBody fills in the entry block of an already-declared
// N-ary function: SSA-bind each parameter by position, compile body with
// tail=true, and add the ret.
func (c *Compiler) compileFunctionBody(fn llvm.Value, params []*value.Value, body *value.Value) error {
	callerBB := c.S.Builder.GetInsertBlock()
	entry := llvm.AddBasicBlock(fn, "entry")
	c.S.Builder.SetInsertPointAtEnd(entry)

	bindings := make(map[uint64]llvm.Value, len(params))
	for i, p := range params {
		bindings[p.Sym.Key()] = fn.Param(i)
	}
	env := (&Env{}).Extend(bindings)

	result, err := c.compileValue(body, env, true)
	if err != nil {
		return err
	}
	c.S.Builder.CreateRet(result)

	if !callerBB.IsNil() {
		c.S.Builder.SetInsertPointAtEnd(callerBB)
	}
	return nil
}

// declareTopLevelLabels is the AOT pre-pass: it scans every top-level
// form for (label name (lambda params body)), declares each as an LLVM
// function of the matching arity, and installs it in fn_table before
// any expression is compiled so forward and mutual references resolve
// as direct LLVM calls.
func (c *Compiler) declareTopLevelLabels(forms []*value.Value) error {
	for _, form := range forms {
		if !isTopLevelLabel(form) {
			continue
		}
		items, _ := form.Slice()
		nameForm, lambdaForm := items[1], items[2]
		if nameForm.Kind != value.KindSymbol {
			return errSyntax(form, "label name must be a symbol")
		}
		lItems, lProper := lambdaForm.Slice()
		if !lProper || len(lItems) != 3 || lItems[0].Kind != value.KindSymbol || lItems[0].Sym != symbol.Lambda {
			return errSyntax(form, "label second operand must be a lambda")
		}
		params, err := paramSymbols(lItems[1], form)
		if err != nil {
			return err
		}
		paramTypes := make([]llvm.Type, len(params))
		for i := range paramTypes {
			paramTypes[i] = c.S.T.RuntimeValue
		}
		fnTy := llvm.FunctionType(c.S.T.RuntimeValue, paramTypes, false)
		fn := llvm.AddFunction(c.S.Module, nameForm.Sym.Name(), fnTy)
		for i, p := range params {
			fn.Param(i).SetName(p.Sym.Name())
		}
		paramKeys := make([]uint64, len(params))
		for i, p := range params {
			paramKeys[i] = p.Sym.Key()
		}
		c.fnTable[nameForm.Sym.Key()] = &fnEntry{fn: fn, arity: len(params), params: paramKeys, body: lItems[2]}
	}
	return nil
}

// compileTopLevelLabelBodies fills in every function declareTopLevelLabels
// registered, now that every top-level label is visible in fn_table so
// forward and mutual references resolve.
func (c *Compiler) compileTopLevelLabelBodies(forms []*value.Value) error {
	for _, form := range forms {
		if !isTopLevelLabel(form) {
			continue
		}
		items, _ := form.Slice()
		nameForm, lambdaForm := items[1], items[2]
		entry := c.fnTable[nameForm.Sym.Key()]
		lItems, _ := lambdaForm.Slice()
		params, err := paramSymbols(lItems[1], form)
		if err != nil {
			return err
		}
		if err := c.compileFunctionBody(entry.fn, params, entry.body); err != nil {
			return err
		}
	}
	return nil
}
