package compiler

import (
	"tinygo.org/x/go-llvm"

	"consair/internal/symbol"
	"consair/internal/value"
)

// primitiveFn compiles a call whose operator is a built-in name rather
// than a fn_table entry, an indirect closure, or a special form.
type primitiveFn func(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error)

// primitives maps every surface built-in name to its compiler. It is
// also consulted by walkFree so a primitive name never gets treated as
// a free variable needing capture.
var primitives = map[uint64]primitiveFn{
	symbol.Plus.Key():  foldArith("rt_add", false),
	symbol.Minus.Key(): foldArith("rt_sub", true),
	symbol.Star.Key():  foldArith("rt_mul", false),
	symbol.Slash.Key(): foldArith("rt_div", false),

	symbol.NumEq.Key(): binary("rt_num_eq"),
	symbol.Lt.Key():    binary("rt_num_lt"),
	symbol.Gt.Key():    binary("rt_num_gt"),
	symbol.Lte.Key():   binary("rt_num_lte"),
	symbol.Gte.Key():   binary("rt_num_gte"),

	symbol.Eq.Key():  binary("rt_eq"),
	symbol.Not.Key(): unary("rt_not"),

	symbol.Null.Key():    unary("rt_is_nil"),
	symbol.Atom.Key():    unary("rt_is_atom"),
	symbol.Consp.Key():   unary("rt_is_cons"),
	symbol.Numberp.Key(): unary("rt_is_number"),

	symbol.Cons.Key():    binary("rt_cons"),
	symbol.Car.Key():     unary("rt_car"),
	symbol.Cdr.Key():     unary("rt_cdr"),
	symbol.Length.Key():  unary("rt_length"),
	symbol.Reverse.Key(): unary("rt_reverse"),
	symbol.Append.Key():  binary("rt_append"),
	symbol.Nth.Key():     binary("rt_nth"),

	symbol.List.Key(): compileList,

	symbol.Vector.Key():       compileVector,
	symbol.VectorRef.Key():    binary("rt_vector_ref"),
	symbol.VectorLength.Key(): unary("rt_vector_length"),
}

func compileArgs(c *Compiler, args []*value.Value, env *Env) ([]llvm.Value, error) {
	vals := make([]llvm.Value, len(args))
	for i, a := range args {
		v, err := c.compileValue(a, env, false)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// foldArith left-folds a binary runtime op across two or more operands.
// A single operand returns unchanged unless allowUnaryNeg names an
// operator (minus) whose one-argument form is negation.
func foldArith(rtName string, allowUnaryNeg bool) primitiveFn {
	return func(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error) {
		if len(args) == 0 {
			return llvm.Value{}, errArity(form, "expects at least 1 operand")
		}
		vals, err := compileArgs(c, args, env)
		if err != nil {
			return llvm.Value{}, err
		}
		if len(vals) == 1 {
			if allowUnaryNeg {
				return c.S.Builder.CreateCall(c.S.Fn("rt_neg"), []llvm.Value{vals[0]}, "neg"), nil
			}
			return vals[0], nil
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			acc = c.S.Builder.CreateCall(c.S.Fn(rtName), []llvm.Value{acc, v}, "arith")
		}
		return acc, nil
	}
}

func binary(rtName string) primitiveFn {
	return func(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error) {
		if len(args) != 2 {
			return llvm.Value{}, errArity(form, "expects exactly 2 operands, got %d", len(args))
		}
		vals, err := compileArgs(c, args, env)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.S.Builder.CreateCall(c.S.Fn(rtName), vals, "call"), nil
	}
}

func unary(rtName string) primitiveFn {
	return func(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error) {
		if len(args) != 1 {
			return llvm.Value{}, errArity(form, "expects exactly 1 operand, got %d", len(args))
		}
		vals, err := compileArgs(c, args, env)
		if err != nil {
			return llvm.Value{}, err
		}
		return c.S.Builder.CreateCall(c.S.Fn(rtName), vals, "call"), nil
	}
}

// compileList right-folds its operands into a rt_cons chain terminated
// by NIL, the same shape (list 1 2 3) => (cons 1 (cons 2 (cons 3 nil))).
func compileList(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error) {
	vals, err := compileArgs(c, args, env)
	if err != nil {
		return llvm.Value{}, err
	}
	acc := c.S.ConstNil()
	for i := len(vals) - 1; i >= 0; i-- {
		acc = c.S.Builder.CreateCall(c.S.Fn("rt_cons"), []llvm.Value{vals[i], acc}, "list.cons")
	}
	return acc, nil
}

// compileVector stacks its operands into a buffer and calls
// rt_make_vector, which copies them onto the heap.
func compileVector(c *Compiler, form *value.Value, args []*value.Value, env *Env) (llvm.Value, error) {
	vals, err := compileArgs(c, args, env)
	if err != nil {
		return llvm.Value{}, err
	}
	var elemsPtr llvm.Value
	if len(vals) == 0 {
		elemsPtr = llvm.ConstPointerNull(c.S.T.Ptr)
	} else {
		arrTy := llvm.ArrayType(c.S.T.RuntimeValue, len(vals))
		arr := c.S.Builder.CreateAlloca(arrTy, "vector.arr")
		zero := llvm.ConstInt(c.S.T.I32, 0, false)
		for i, v := range vals {
			idx := llvm.ConstInt(c.S.T.I32, uint64(i), false)
			slot := c.S.Builder.CreateGEP(arr, []llvm.Value{zero, idx}, "vector.slot")
			c.S.Builder.CreateStore(v, slot)
		}
		elemsPtr = c.S.Builder.CreateBitCast(arr, c.S.T.Ptr, "vector.ptr")
	}
	length := llvm.ConstInt(c.S.T.I64, uint64(len(vals)), false)
	return c.S.Builder.CreateCall(c.S.Fn("rt_make_vector"), []llvm.Value{elemsPtr, length}, "vector.val"), nil
}
