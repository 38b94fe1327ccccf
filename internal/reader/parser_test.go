package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAll_AtomsAndLists(t *testing.T) {
	forms, err := ReadAll(`(+ 1 2 3 4)`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "(+ 1 2 3 4)", forms[0].String())
}

func TestReadAll_MultipleTopLevelForms(t *testing.T) {
	forms, err := ReadAll(`(+ 1 2) (* 3 4)`)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "(+ 1 2)", forms[0].String())
	assert.Equal(t, "(* 3 4)", forms[1].String())
}

func TestReadAll_QuoteShorthandExpandsToQuoteForm(t *testing.T) {
	forms, err := ReadAll(`'(a b)`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "(quote (a b))", forms[0].String())
}

func TestReadAll_StringsAndFloats(t *testing.T) {
	forms, err := ReadAll(`"hello world" 3.14 -2.5`)
	require.NoError(t, err)
	require.Len(t, forms, 3)
	assert.Equal(t, "hello world", forms[0].String())
	assert.Equal(t, float64(3.14), forms[1].Float)
	assert.Equal(t, float64(-2.5), forms[2].Float)
}

func TestReadAll_NegativeIntegersAreNotMistakenForSymbols(t *testing.T) {
	forms, err := ReadAll(`-5`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, int64(-5), forms[0].Int)
}

func TestReadAll_BareOperatorSymbolsStayOperators(t *testing.T) {
	forms, err := ReadAll(`(- 1 2)`)
	require.NoError(t, err)
	items, proper := forms[0].Slice()
	require.True(t, proper)
	assert.Equal(t, "-", items[0].Sym.Name())
}

func TestReadAll_UnterminatedListIsASyntaxError(t *testing.T) {
	_, err := ReadAll(`(+ 1 2`)
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestReadAll_UnexpectedCloseParenIsASyntaxError(t *testing.T) {
	_, err := ReadAll(`)`)
	require.Error(t, err)
}

func TestReadAll_CommentsAreIgnored(t *testing.T) {
	forms, err := ReadAll("; a comment\n(+ 1 2) ; trailing\n")
	require.NoError(t, err)
	require.Len(t, forms, 1)
}

func TestComplete_ReportsBalance(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"empty input", "", true},
		{"balanced single form", "(+ 1 2)", true},
		{"one unclosed paren", "(+ 1 2", false},
		{"nested unclosed paren", "(cond ((= 1 1) 2)", false},
		{"balanced nested form", "(cond ((= 1 1) 2))", true},
		{"open paren inside string literal is not counted", `"("`, true},
		{"unterminated string literal", `"(`, false},
		{"escaped quote inside string does not close it", `"a\"` + `)"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Complete(tt.src))
		})
	}
}
