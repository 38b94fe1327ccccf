// Package substrate owns the LLVM context + module pair that hosts the
// runtime: it defines the RuntimeValue/heap struct types and builds every
// runtime helper routine exactly once via tinygo.org/x/go-llvm's builder
// API. internal/driver's JIT path JIT-compiles this module directly; its
// AOT path compiles the user's program into this same module and prints
// it to text, so the two execution modes always run
// byte-identical runtime code instead of two independently maintained
// implementations.
package substrate

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

// Tag constants, bit-exact across JIT and AOT.
const (
	TagNil     = 0
	TagBool    = 1
	TagInt     = 2
	TagFloat   = 3
	TagCons    = 4
	TagSymbol  = 5
	TagClosure = 6
	TagString  = 7
	TagVector  = 8
)

// Types bundles the LLVM type handles every compiler codegen site needs.
type Types struct {
	I1, I8, I32, I64, F64, Void llvm.Type
	Ptr                         llvm.Type // i8* — the generic pointer used for every heap reference and the uniform closure ABI's env_ptr/args_ptr.
	RuntimeValue                llvm.Type // %RuntimeValue = { i8, i64 }
	ConsCell                    llvm.Type // %RuntimeConsCell = { %RuntimeValue, %RuntimeValue, i32 }
	Closure                     llvm.Type // %RuntimeClosure = { i8*, i8*, i32, i32 }
	Str                         llvm.Type // %RuntimeString = { i8*, i64, i32 }
	Vector                      llvm.Type // %RuntimeVector = { i8*, i64, i32 }
	ClosureFn                   llvm.Type // uniform closure signature: (i8*, i8*, i32) -> %RuntimeValue
}

// Substrate is the codegen factory: module + builder + pre-built runtime.
type Substrate struct {
	Ctx     llvm.Context
	Module  llvm.Module
	Builder llvm.Builder
	T       Types

	fns map[string]llvm.Value

	mallocFn, freeFn, printfFn, memcpyFn, timeFn llvm.Value

	fmtNil, fmtTrue, fmtFalse, fmtInt, fmtFloat                     llvm.Value
	fmtConsOpen, fmtConsClose, fmtSpace, fmtDot, fmtNewline, fmtStr llvm.Value
}

// New creates a fresh context + module named name, with the full runtime
// substrate already built (types, externs, and every rt_* function
// defined with a real body — not just declared).
func New(name string) *Substrate {
	ctx := llvm.NewContext()
	mod := ctx.NewModule(name)
	b := ctx.NewBuilder()

	s := &Substrate{
		Ctx:     ctx,
		Module:  mod,
		Builder: b,
		fns:     make(map[string]llvm.Value),
	}
	s.buildTypes()
	s.declareExternals()
	s.declareFormatStrings()
	s.buildRuntimeFunctions()
	return s
}

func (s *Substrate) buildTypes() {
	ctx := s.Ctx
	t := Types{
		I1:   ctx.Int1Type(),
		I8:   ctx.Int8Type(),
		I32:  ctx.Int32Type(),
		I64:  ctx.Int64Type(),
		F64:  ctx.DoubleType(),
		Void: ctx.VoidType(),
	}
	t.Ptr = llvm.PointerType(t.I8, 0)
	t.RuntimeValue = ctx.StructCreateNamed("RuntimeValue")
	t.RuntimeValue.StructSetBody([]llvm.Type{t.I8, t.I64}, false)

	t.ConsCell = ctx.StructCreateNamed("RuntimeConsCell")
	t.ConsCell.StructSetBody([]llvm.Type{t.RuntimeValue, t.RuntimeValue, t.I32}, false)

	t.Closure = ctx.StructCreateNamed("RuntimeClosure")
	t.Closure.StructSetBody([]llvm.Type{t.Ptr, t.Ptr, t.I32, t.I32}, false)

	t.Str = ctx.StructCreateNamed("RuntimeString")
	t.Str.StructSetBody([]llvm.Type{t.Ptr, t.I64, t.I32}, false)

	t.Vector = ctx.StructCreateNamed("RuntimeVector")
	t.Vector.StructSetBody([]llvm.Type{t.Ptr, t.I64, t.I32}, false)

	t.ClosureFn = llvm.FunctionType(t.RuntimeValue, []llvm.Type{t.Ptr, t.Ptr, t.I32}, false)

	s.T = t
}

func (s *Substrate) declareExternals() {
	t := s.T
	s.mallocFn = s.addDeclare("malloc", llvm.FunctionType(t.Ptr, []llvm.Type{t.I64}, false))
	s.freeFn = s.addDeclare("free", llvm.FunctionType(t.Void, []llvm.Type{t.Ptr}, false))
	s.printfFn = s.addDeclare("printf", llvm.FunctionType(t.I32, []llvm.Type{t.Ptr}, true))
	s.memcpyFn = s.addDeclare("memcpy", llvm.FunctionType(t.Ptr, []llvm.Type{t.Ptr, t.Ptr, t.I64}, false))
	s.timeFn = s.addDeclare("time", llvm.FunctionType(t.I64, []llvm.Type{t.Ptr}, false))
}

func (s *Substrate) addDeclare(name string, fnType llvm.Type) llvm.Value {
	if fn := s.Module.NamedFunction(name); !fn.IsNil() {
		return fn
	}
	return llvm.AddFunction(s.Module, name, fnType)
}

// declareFormatStrings defines the printf format-string globals the
// print helpers share. New builds these before any runtime function
// exists, so there is no active insertion block yet for a builder-side
// CreateGlobalStringPtr; each global is instead lowered to i8* with a
// constant bitcast, giving every call site the same already-i8* value
// CreateGlobalStringPtr would have produced, without needing a block.
func (s *Substrate) declareFormatStrings() {
	def := func(name, text string) llvm.Value {
		data := llvm.ConstString(text+"\x00", false)
		g := llvm.AddGlobal(s.Module, data.Type(), name)
		g.SetInitializer(data)
		g.SetGlobalConstant(true)
		g.SetLinkage(llvm.PrivateLinkage)
		return llvm.ConstBitCast(g, s.T.Ptr)
	}
	s.fmtNil = def("fmt_nil", "nil")
	s.fmtTrue = def("fmt_true", "true")
	s.fmtFalse = def("fmt_false", "false")
	s.fmtInt = def("fmt_int", "%lld")
	s.fmtFloat = def("fmt_float", "%g")
	s.fmtConsOpen = def("fmt_cons_open", "(")
	s.fmtConsClose = def("fmt_cons_close", ")")
	s.fmtSpace = def("fmt_space", " ")
	s.fmtDot = def("fmt_dot", " . ")
	s.fmtNewline = def("fmt_newline", "\n")
	s.fmtStr = def("fmt_string", "%.*s")
}

// Fn looks up a previously built runtime helper by its rt_ name. It
// panics if name was not registered by buildRuntimeFunctions — a
// programming error in the compiler, never a user-facing one.
func (s *Substrate) Fn(name string) llvm.Value {
	fn, ok := s.fns[name]
	if !ok {
		panic(fmt.Sprintf("substrate: no such runtime function %q", name))
	}
	return fn
}

// Verify runs LLVM's structural verifier over the module.
func (s *Substrate) Verify() error {
	return llvm.VerifyModule(s.Module, llvm.ReturnStatusAction)
}

// String renders the module as textual LLVM IR.
func (s *Substrate) String() string {
	return s.Module.String()
}

// gep0 builds a pointer to the idx-th field of a struct-typed pointer,
// via a {0, idx} GEP — the idiom every heap-layout accessor below uses.
func (s *Substrate) gep0(structTy llvm.Type, ptr llvm.Value, idx int, name string) llvm.Value {
	zero := llvm.ConstInt(s.T.I32, 0, false)
	i := llvm.ConstInt(s.T.I32, uint64(idx), false)
	return s.Builder.CreateGEP(ptr, []llvm.Value{zero, i}, name)
}

func (s *Substrate) malloc(size llvm.Value, name string) llvm.Value {
	return s.Builder.CreateCall(s.mallocFn, []llvm.Value{size}, name)
}

func (s *Substrate) sizeOf(t llvm.Type) llvm.Value {
	return llvm.SizeOf(t)
}

// Gep exposes gep0 to callers outside the package (the compiler needs it
// to build heap records for string literals the same way the runtime
// helpers do).
func (s *Substrate) Gep(structTy llvm.Type, ptr llvm.Value, idx int, name string) llvm.Value {
	return s.gep0(structTy, ptr, idx, name)
}

// Malloc exposes the malloc helper to callers outside the package.
func (s *Substrate) Malloc(size llvm.Value, name string) llvm.Value {
	return s.malloc(size, name)
}

// MakeRV exposes RuntimeValue construction to callers outside the
// package.
func (s *Substrate) MakeRV(tag llvm.Value, data llvm.Value) llvm.Value {
	return s.makeRV(tag, data)
}

// ConstTag exposes the tag-byte constant builder to callers outside the
// package.
func (s *Substrate) ConstTag(tag uint64) llvm.Value {
	return s.constTag(tag)
}

// MallocFn returns the declared libc malloc function value.
func (s *Substrate) MallocFn() llvm.Value {
	return s.mallocFn
}
