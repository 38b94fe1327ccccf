package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameGen_SequentialPerPrefix(t *testing.T) {
	g := NewNameGen()
	assert.Equal(t, "closure.0", g.Next("closure"))
	assert.Equal(t, "closure.1", g.Next("closure"))
	assert.Equal(t, "jit_capture.0", g.Next("jit_capture"))
	assert.Equal(t, "closure.2", g.Next("closure"))
}

func TestNameGen_ConcurrentRequestsYieldDistinctNames(t *testing.T) {
	g := NewNameGen()
	const n = 50
	var wg sync.WaitGroup
	names := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = g.Next("fn")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}
