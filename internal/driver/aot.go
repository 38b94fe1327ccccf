package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"tinygo.org/x/go-llvm"

	"consair/internal/cache"
	"consair/internal/compiler"
	"consair/internal/substrate"
	"consair/internal/value"
)

// AOTResult is what one ahead-of-time build produces: the textual LLVM
// IR for the whole program (runtime substrate plus every compiled
// top-level form) and the name of the function a native entry point
// should call to produce the program's final value.
type AOTResult struct {
	IR         string
	EntryPoint string
	Stats      cache.CacheStats
}

// CompileAOT lowers forms into one LLVM module and renders it as text,
// ready for clang to assemble into a native binary. Unlike EvalAll, it
// never executes anything: cache hits only short-circuit codegen for a
// pure top-level form, they don't run it.
func CompileAOT(ctx context.Context, forms []*value.Value, cacheCfg cache.CacheConfig) (*AOTResult, error) {
	if len(forms) == 0 {
		return nil, fmt.Errorf("no top-level forms to compile")
	}

	id := uuid.NewString()
	sub := substrate.New("consair-aot-" + id)
	comp := compiler.New(sub)
	c := cache.New(cacheCfg)

	glog.V(1).Infof("aot: module %s: hashing %d top-level forms for cache hits", id, len(forms))
	precomputed, err := precomputeCacheHits(ctx, forms, c)
	if err != nil {
		return nil, err
	}

	exprFns, err := comp.CompileProgram(forms, precomputed)
	if err != nil {
		return nil, err
	}
	if len(exprFns) == 0 {
		return nil, fmt.Errorf("no value-producing top-level forms to compile")
	}
	glog.V(1).Infof("aot: module %s: %d expression functions emitted, %d cache hits avoided recompilation",
		id, len(exprFns), c.Stats().CompilationsAvoided)

	entryName := buildMainEntry(sub, exprFns)

	if err := sub.Verify(); err != nil {
		return nil, &compiler.CompileError{Kind: compiler.KindVerification, Msg: fmt.Sprintf("module %s failed verification: %s", id, err)}
	}

	return &AOTResult{
		IR:         stripHeaderNoise(sub.String()),
		EntryPoint: entryName,
		Stats:      c.Stats(),
	}, nil
}

// buildMainEntry builds a `consair_main() -> void` function that calls
// every expression function in source order for its side effects and
// prints only the value of the last one via rt_println — the AOT
// mirror of EvalAll's capture-then-print-last behavior, except every
// call here is an ordinary direct LLVM call instead of crossing the
// Go/JIT boundary through a shim.
func buildMainEntry(s *substrate.Substrate, exprFns []llvm.Value) string {
	const name = "consair_main"
	fnTy := llvm.FunctionType(s.T.Void, nil, false)
	fn := llvm.AddFunction(s.Module, name, fnTy)
	entry := llvm.AddBasicBlock(fn, "entry")
	s.Builder.SetInsertPointAtEnd(entry)

	var last llvm.Value
	for _, exprFn := range exprFns {
		last = s.Builder.CreateCall(exprFn, nil, "expr.result")
	}
	s.Builder.CreateCall(s.Fn("rt_println"), []llvm.Value{last}, "")
	s.Builder.CreateRetVoid()
	return name
}

// stripHeaderNoise trims incidental leading/trailing blank lines from
// rendered IR text — the one cosmetic cleanup textual emission needs,
// since the runtime and user code share a single builder-constructed
// module rather than two independently authored blobs whose
// target-triple/datalayout headers would otherwise need reconciling.
func stripHeaderNoise(ir string) string {
	return strings.TrimSpace(ir) + "\n"
}
