package driver

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/google/uuid"
	"tinygo.org/x/go-llvm"

	"consair/internal/cache"
	"consair/internal/compiler"
	"consair/internal/substrate"
	"consair/internal/util"
	"consair/internal/value"
)

// JIT owns one LLVM execution engine over one substrate module. Every
// form compiled through EvalAll shares this module and its fn_table, so
// later top-level labels can call earlier ones directly.
type JIT struct {
	id        string
	sub       *substrate.Substrate
	comp      *compiler.Compiler
	cache     *cache.Cache
	engine    llvm.ExecutionEngine
	printShim llvm.Value
	built     bool
	names     *util.NameGen
}

// NewJIT creates a JIT driver with its own substrate module and result
// cache. The module carries a random id (surfaced in diagnostics, e.g.
// verification failures) so multiple JIT instances in one process never
// share a name.
func NewJIT(cacheCfg cache.CacheConfig) *JIT {
	id := uuid.NewString()
	sub := substrate.New("consair-jit-" + id)
	return &JIT{
		id:    id,
		sub:   sub,
		comp:  compiler.New(sub),
		cache: cache.New(cacheCfg),
		names: util.NewNameGen(),
	}
}

// Stats exposes the cache's hit/miss/avoidance counters.
func (j *JIT) Stats() cache.CacheStats { return j.cache.Stats() }

// EvalAll compiles and runs every top-level form in forms in source
// order via the JIT, printing only the value of the last one. It may be
// called more than once on the same JIT instance (e.g. one call per
// line typed at a REPL); each call extends the same module and fn_table
// so earlier definitions stay visible to later input.
func (j *JIT) EvalAll(ctx context.Context, forms []*value.Value) error {
	if len(forms) == 0 {
		return nil
	}

	precomputed, err := precomputeCacheHits(ctx, forms, j.cache)
	if err != nil {
		return err
	}

	exprFns, err := j.comp.CompileProgram(forms, precomputed)
	if err != nil {
		return err
	}
	if len(exprFns) == 0 {
		return nil
	}

	captureFns := make([]llvm.Value, len(exprFns))
	for i, fn := range exprFns {
		captureFns[i] = buildCaptureThunk(j.sub, fn, j.names.Next("jit_capture"))
	}
	printShim := j.ensurePrintShim()

	if err := j.sub.Verify(); err != nil {
		return &compiler.CompileError{Kind: compiler.KindVerification, Msg: fmt.Sprintf("module %s failed verification: %s", j.id, err)}
	}

	engine, err := j.ensureEngine()
	if err != nil {
		return err
	}

	var nonLabelForms []*value.Value
	for _, f := range forms {
		if !isLabelForm(f) {
			nonLabelForms = append(nonLabelForms, f)
		}
	}

	for i, capFn := range captureFns {
		tag, data := runCapture(engine, capFn)
		form := nonLabelForms[i]
		j.cache.Record(form, tag, data)
		if i == len(captureFns)-1 {
			runPrintShim(engine, printShim, tag, data)
		}
	}
	return nil
}

func (j *JIT) ensureEngine() (llvm.ExecutionEngine, error) {
	if j.built {
		return j.engine, nil
	}
	llvm.LinkInMCJIT()
	if err := llvm.InitializeNativeTarget(); err != nil {
		return llvm.ExecutionEngine{}, err
	}
	if err := llvm.InitializeNativeAsmPrinter(); err != nil {
		return llvm.ExecutionEngine{}, err
	}
	opts := llvm.NewMCJITCompilerOptions()
	engine, err := llvm.NewMCJITCompiler(j.sub.Module, opts)
	if err != nil {
		return llvm.ExecutionEngine{}, err
	}
	j.engine = engine
	j.built = true
	return engine, nil
}

func (j *JIT) ensurePrintShim() llvm.Value {
	if j.printShim.IsNil() {
		j.printShim = buildPrintShim(j.sub)
	}
	return j.printShim
}

// buildCaptureThunk builds `name(outTag i8*, outData i8*) -> void`,
// calling target (a niladic RuntimeValue-returning function) and storing
// its tag/data fields through the two out-pointers. RunFunction only
// reliably marshals scalar and pointer arguments across the Go/JIT
// boundary, never aggregates, so every value ever crosses that boundary
// this way — a byte and a word at a time, never a struct.
func buildCaptureThunk(s *substrate.Substrate, target llvm.Value, name string) llvm.Value {
	fnTy := llvm.FunctionType(s.T.Void, []llvm.Type{s.T.Ptr, s.T.Ptr}, false)
	fn := llvm.AddFunction(s.Module, name, fnTy)
	outTag, outData := fn.Param(0), fn.Param(1)

	callerBB := s.Builder.GetInsertBlock()
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)

	rv := s.Builder.CreateCall(target, nil, "rv")
	tag := s.RvTag(rv)
	data := s.RvData(rv)
	s.Builder.CreateStore(tag, outTag)
	typedData := s.Builder.CreateBitCast(outData, llvm.PointerType(s.T.I64, 0), "outdata.typed")
	s.Builder.CreateStore(data, typedData)
	s.Builder.CreateRetVoid()

	if !callerBB.IsNil() {
		s.Builder.SetInsertPointAtEnd(callerBB)
	}
	return fn
}

// buildPrintShim builds the one `jit_println_shim(i8, i64) -> void`
// wrapper a JIT instance needs: it reassembles the two scalars into a
// RuntimeValue and calls rt_println, so printing a cached hit needs no
// LLVM IR of its own beyond this already-built, reusable function.
func buildPrintShim(s *substrate.Substrate) llvm.Value {
	fnTy := llvm.FunctionType(s.T.Void, []llvm.Type{s.T.I8, s.T.I64}, false)
	fn := llvm.AddFunction(s.Module, "jit_println_shim", fnTy)
	tagParam, dataParam := fn.Param(0), fn.Param(1)

	callerBB := s.Builder.GetInsertBlock()
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)

	rv := s.MakeRV(tagParam, dataParam)
	s.Builder.CreateCall(s.Fn("rt_println"), []llvm.Value{rv}, "")
	s.Builder.CreateRetVoid()

	if !callerBB.IsNil() {
		s.Builder.SetInsertPointAtEnd(callerBB)
	}
	return fn
}

func runCapture(engine llvm.ExecutionEngine, thunk llvm.Value) (tag uint8, data uint64) {
	var tagOut uint8
	var dataOut uint64
	tagArg := llvm.NewGenericValueFromPointer(unsafe.Pointer(&tagOut))
	dataArg := llvm.NewGenericValueFromPointer(unsafe.Pointer(&dataOut))
	engine.RunFunction(thunk, []llvm.GenericValue{tagArg, dataArg})
	return tagOut, dataOut
}

func runPrintShim(engine llvm.ExecutionEngine, shim llvm.Value, tag uint8, data uint64) {
	tagArg := llvm.NewGenericValueFromInt(llvm.Int8Type(), uint64(tag), false)
	dataArg := llvm.NewGenericValueFromInt(llvm.Int64Type(), data, false)
	engine.RunFunction(shim, []llvm.GenericValue{tagArg, dataArg})
}
