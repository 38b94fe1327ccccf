package util

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs temporarily replaces os.Args for the duration of fn. ParseCadrArgs
// and ParseConsArgs read os.Args directly, matching the donor's convention.
func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"cmd"}, args...)
	defer func() { os.Args = old }()
	fn()
}

func TestParseCadrArgs_NoArgumentsIsAnError(t *testing.T) {
	withArgs(t, nil, func() {
		_, err := ParseCadrArgs()
		assert.Error(t, err)
	})
}

func TestParseCadrArgs_SourceOnly(t *testing.T) {
	withArgs(t, []string{"prog.cons"}, func() {
		opt, err := ParseCadrArgs()
		require.NoError(t, err)
		assert.Equal(t, "prog.cons", opt.Src)
		assert.Empty(t, opt.Out)
	})
}

func TestParseCadrArgs_SourceAndOutputFlag(t *testing.T) {
	withArgs(t, []string{"prog.cons", "-o", "prog.ll"}, func() {
		opt, err := ParseCadrArgs()
		require.NoError(t, err)
		assert.Equal(t, "prog.cons", opt.Src)
		assert.Equal(t, "prog.ll", opt.Out)
	})
}

func TestParseCadrArgs_DanglingOutputFlagIsAnError(t *testing.T) {
	withArgs(t, []string{"prog.cons", "-o"}, func() {
		_, err := ParseCadrArgs()
		assert.Error(t, err)
	})
}

func TestParseCadrArgs_ExtraPositionalArgumentIsAnError(t *testing.T) {
	withArgs(t, []string{"prog.cons", "extra.cons"}, func() {
		_, err := ParseCadrArgs()
		assert.Error(t, err)
	})
}

func TestParseConsArgs_NoArgumentsStartsARepl(t *testing.T) {
	withArgs(t, nil, func() {
		opt, err := ParseConsArgs()
		require.NoError(t, err)
		assert.Empty(t, opt.Src)
	})
}

func TestParseConsArgs_FileArgument(t *testing.T) {
	withArgs(t, []string{"prog.cons"}, func() {
		opt, err := ParseConsArgs()
		require.NoError(t, err)
		assert.Equal(t, "prog.cons", opt.Src)
	})
}

func TestParseConsArgs_ExtraPositionalArgumentIsAnError(t *testing.T) {
	withArgs(t, []string{"a.cons", "b.cons"}, func() {
		_, err := ParseConsArgs()
		assert.Error(t, err)
	})
}
