package compiler

import (
	"tinygo.org/x/go-llvm"

	"consair/internal/value"
)

// Env is a persistent, parent-linked binding scope from symbol key to the
// SSA RuntimeValue captured at that binding. Extending an Env never
// mutates an existing frame, so a closure that captured an outer Env
// stays valid after the frame that created the inner one returns.
type Env struct {
	vars   map[uint64]llvm.Value
	parent *Env
}

// Extend returns a new scope layered on top of e with bindings added.
func (e *Env) Extend(bindings map[uint64]llvm.Value) *Env {
	return &Env{vars: bindings, parent: e}
}

// Lookup walks the scope chain outward from e looking for key.
func (e *Env) Lookup(key uint64) (llvm.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[key]; ok {
			return v, true
		}
	}
	return llvm.Value{}, false
}

// fnEntry records a direct-callable LLVM function and the arity the
// compiler must check call sites against. params/body record the labeled
// lambda's parameter keys and body; compileTopLevelLabelBodies compiles
// the function's definition from body.
type fnEntry struct {
	fn     llvm.Value
	arity  int
	params []uint64
	body   *value.Value
}
