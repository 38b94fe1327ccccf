// Package testutil holds small helpers shared by package test suites.
package testutil

import (
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// AssertGoldenText fails t with a readable diff if got does not exactly
// match want. Grounded in google-kati's run_test.go, which renders
// expected-vs-actual build output the same way on a golden-comparison
// failure.
func AssertGoldenText(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	t.Errorf("golden text mismatch (red=got, green=want):\n%s", dmp.DiffPrettyText(diffs))
}
