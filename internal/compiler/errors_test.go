package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"consair/internal/value"
)

func TestErrorKind_String(t *testing.T) {
	cases := map[ErrorKind]string{
		KindUnsupported:  "unsupported construct",
		KindSyntax:       "invalid syntax",
		KindArity:        "arity mismatch",
		KindUnbound:      "unbound symbol",
		KindVerification: "compilation failure",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestCompileError_ErrorIncludesTheOffendingNode(t *testing.T) {
	node := value.Int(7)
	err := errArity(node, "expected %d args, got %d", 2, 1)
	assert.Contains(t, err.Error(), "arity mismatch")
	assert.Contains(t, err.Error(), "expected 2 args, got 1")
	assert.Contains(t, err.Error(), node.String())
}

func TestCompileError_ErrorOmitsNodeWhenNil(t *testing.T) {
	err := &CompileError{Kind: KindVerification, Msg: "module did not verify"}
	assert.Equal(t, "compilation failure: module did not verify", err.Error())
}

func TestErrUnbound_CarriesTheSymbolName(t *testing.T) {
	err := errUnbound(nil, "frobnicate")
	var ce *CompileError
	assert.ErrorAs(t, error(err), &ce)
	assert.Equal(t, KindUnbound, ce.Kind)
	assert.Contains(t, ce.Msg, "frobnicate")
}
