// Package compiler lowers parsed value.Value trees into LLVM IR against
// a codegen substrate, implementing the special forms, closure
// conversion, labeled-lambda materialization, and call-site dispatch of
// the Lisp core.
package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"consair/internal/substrate"
	"consair/internal/symbol"
	"consair/internal/util"
	"consair/internal/value"
)

// Compiler holds the state threaded through one compilation unit: the
// substrate it emits calls into, the table of direct-callable top-level
// functions, and a generator for the unique names closures and inline
// labeled lambdas need.
type Compiler struct {
	S       *substrate.Substrate
	names   *util.NameGen
	fnTable map[uint64]*fnEntry
}

// New creates a Compiler over an already-built substrate.
func New(s *substrate.Substrate) *Compiler {
	return &Compiler{
		S:       s,
		names:   util.NewNameGen(),
		fnTable: make(map[uint64]*fnEntry),
	}
}

// ResultCache is the narrow view CompileProgram needs of the result
// cache: consulted before compiling a top-level expression so a cache
// hit never runs the general lowering for that form at all.
type ResultCache interface {
	Lookup(form *value.Value) (tag uint8, data uint64, ok bool)
}

// CompileProgram implements the full per-compilation-unit state machine:
// declare top-level labels, compile their bodies, then compile every
// other top-level form into its own zero-argument "expr" function. Bare
// top-level (label name (lambda ...)) forms contribute only a
// function-table entry; they produce no expression function of their
// own since they have no value-producing use at top level. rc may be
// nil to compile every form unconditionally.
func (c *Compiler) CompileProgram(forms []*value.Value, rc ResultCache) ([]llvm.Value, error) {
	if err := c.declareTopLevelLabels(forms); err != nil {
		return nil, err
	}
	if err := c.compileTopLevelLabelBodies(forms); err != nil {
		return nil, err
	}

	var exprFns []llvm.Value
	for i, form := range forms {
		if isTopLevelLabel(form) {
			continue
		}
		var fn llvm.Value
		var err error
		if rc != nil {
			if tag, data, ok := rc.Lookup(form); ok {
				fn = c.compileCachedExpr(i, tag, data)
			}
		}
		if fn.IsNil() {
			fn, err = c.compileTopLevelExpr(form, i)
			if err != nil {
				return nil, err
			}
		}
		exprFns = append(exprFns, fn)
	}
	return exprFns, nil
}

// compileCachedExpr synthesizes a zero-argument function returning a
// known constant (tag, data) pair, bypassing compileValue entirely for a
// cache hit.
func (c *Compiler) compileCachedExpr(index int, tag uint8, data uint64) llvm.Value {
	name := fmt.Sprintf("expr.%d", index)
	fnTy := llvm.FunctionType(c.S.T.RuntimeValue, nil, false)
	fn := llvm.AddFunction(c.S.Module, name, fnTy)
	entry := llvm.AddBasicBlock(fn, "entry")
	c.S.Builder.SetInsertPointAtEnd(entry)

	rv := c.S.MakeRV(llvm.ConstInt(c.S.T.I8, uint64(tag), false), llvm.ConstInt(c.S.T.I64, data, false))
	c.S.Builder.CreateRet(rv)
	return fn
}

// isTopLevelLabel reports whether form is a bare (label name (lambda
// params body)) definition rather than a value-producing expression.
func isTopLevelLabel(form *value.Value) bool {
	items, proper := form.Slice()
	if !proper || len(items) != 3 || items[0].Kind != value.KindSymbol {
		return false
	}
	return items[0].Sym == symbol.Label
}

// compileTopLevelExpr wraps form in a fresh zero-argument function that
// returns its compiled value, so the driver can invoke top-level
// expressions one at a time in source order.
func (c *Compiler) compileTopLevelExpr(form *value.Value, index int) (llvm.Value, error) {
	name := fmt.Sprintf("expr.%d", index)
	fnTy := llvm.FunctionType(c.S.T.RuntimeValue, nil, false)
	fn := llvm.AddFunction(c.S.Module, name, fnTy)
	entry := llvm.AddBasicBlock(fn, "entry")
	c.S.Builder.SetInsertPointAtEnd(entry)

	result, err := c.compileValue(form, nil, true)
	if err != nil {
		return llvm.Value{}, err
	}
	c.S.Builder.CreateRet(result)
	return fn, nil
}

// compileValue is compile_value: the recursive AST-to-IR lowering
// function, dispatching on the AST node's Kind.
func (c *Compiler) compileValue(v *value.Value, env *Env, tail bool) (llvm.Value, error) {
	switch v.Kind {
	case value.KindNil:
		return c.S.ConstNil(), nil
	case value.KindBool:
		return c.S.ConstBool(v.Bool), nil
	case value.KindInt:
		return c.S.ConstInt(v.Int), nil
	case value.KindFloat:
		return c.S.ConstFloat(v.Float), nil
	case value.KindString:
		return c.compileStringLiteral(v)
	case value.KindSymbol:
		return c.compileSymbolRef(v, env)
	case value.KindCons:
		return c.compileCall(v, env, tail)
	case value.KindVector:
		return c.compileQuotedVector(v)
	case value.KindLambda, value.KindMacro, value.KindNativeFn:
		return llvm.Value{}, errUnsupported(v, "%s cannot appear directly in compiled code", v.Kind)
	default:
		return llvm.Value{}, errUnsupported(v, "unrecognised AST node")
	}
}

// compileSymbolRef resolves a bare symbol: t/nil are hard-coded, env
// bindings resolve to their captured SSA value, a labeled top-level
// function used as a value closure-converts with zero captures,
// otherwise the name is unbound.
func (c *Compiler) compileSymbolRef(v *value.Value, env *Env) (llvm.Value, error) {
	switch v.Sym {
	case symbol.T:
		return c.S.ConstBool(true), nil
	case symbol.Nil:
		return c.S.ConstNil(), nil
	}
	if sv, ok := env.Lookup(v.Sym.Key()); ok {
		return sv, nil
	}
	if entry, ok := c.fnTable[v.Sym.Key()]; ok {
		return c.closeOverNamedFunction(entry)
	}
	return llvm.Value{}, errUnbound(v, v.Sym.Name())
}

// closeOverNamedFunction wraps a direct-callable top-level function in a
// CLOSURE value with an empty environment, so a labeled function can be
// passed around as a first-class value even though its calls are
// ordinarily direct. The closure's function is a trampoline of the
// uniform (env, args, n) signature that loads entry.arity arguments from
// args_ptr and calls entry.fn directly.
func (c *Compiler) closeOverNamedFunction(entry *fnEntry) (llvm.Value, error) {
	callerBB := c.S.Builder.GetInsertBlock()
	tramp := llvm.AddFunction(c.S.Module, c.names.Next("named_fn"), c.S.T.ClosureFn)
	c.S.Builder.SetInsertPointAtEnd(llvm.AddBasicBlock(tramp, "entry"))
	typedArgs := c.S.Builder.CreateBitCast(tramp.Param(1), llvm.PointerType(c.S.T.RuntimeValue, 0), "args.typed")
	argVals := make([]llvm.Value, entry.arity)
	for i := range argVals {
		idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
		argVals[i] = c.S.Builder.CreateLoad(c.S.Builder.CreateGEP(typedArgs, []llvm.Value{idx}, "param.ptr"), "param.val")
	}
	c.S.Builder.CreateRet(c.S.Builder.CreateCall(entry.fn, argVals, "named_fn.call"))
	c.S.Builder.SetInsertPointAtEnd(callerBB)
	return c.buildClosureValue(tramp, nil)
}

// compileStringLiteral builds a RuntimeString for a literal and returns
// it tagged STRING. Strings are immutable and never mutated after
// construction, so the backing bytes can live in a private global.
func (c *Compiler) compileStringLiteral(v *value.Value) (llvm.Value, error) {
	data := llvm.ConstString(v.Str, false)
	g := llvm.AddGlobal(c.S.Module, data.Type(), c.names.Next("str.data"))
	g.SetInitializer(data)
	g.SetGlobalConstant(true)
	g.SetLinkage(llvm.PrivateLinkage)
	bytesPtr := c.S.Builder.CreateBitCast(g, c.S.T.Ptr, "str.bytes")

	raw := c.S.Malloc(llvm.SizeOf(c.S.T.Str), "str.raw")
	str := c.S.Builder.CreateBitCast(raw, llvm.PointerType(c.S.T.Str, 0), "str.ptr")
	c.S.Builder.CreateStore(bytesPtr, c.S.Gep(c.S.T.Str, str, 0, "str.data.field"))
	c.S.Builder.CreateStore(llvm.ConstInt(c.S.T.I64, uint64(len(v.Str)), false), c.S.Gep(c.S.T.Str, str, 1, "str.len.field"))
	c.S.Builder.CreateStore(llvm.ConstInt(c.S.T.I32, 1, false), c.S.Gep(c.S.T.Str, str, 2, "str.rc.field"))

	dataWord := c.S.Builder.CreatePtrToInt(raw, c.S.T.I64, "str.dataword")
	return c.S.MakeRV(c.S.ConstTag(substrate.TagString), dataWord), nil
}

// compileQuotedVector is reached only for a vector literal that survived
// into the AST directly (e.g. produced by a future reader extension);
// the surface grammar itself has no vector literal syntax, only the
// `vector` primitive call.
func (c *Compiler) compileQuotedVector(v *value.Value) (llvm.Value, error) {
	return llvm.Value{}, errUnsupported(v, "quoted vector literals are not supported; use (vector ...)")
}
