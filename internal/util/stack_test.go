package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_PushPopIsLIFO(t *testing.T) {
	var s Stack
	s.Push('(')
	s.Push('(')
	s.Push('(')
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, '(', s.Pop())
	assert.Equal(t, 2, s.Size())
}

func TestStack_PopOnEmptyStackReturnsNil(t *testing.T) {
	var s Stack
	assert.Nil(t, s.Pop())
}

func TestStack_PushNilIsIgnored(t *testing.T) {
	var s Stack
	s.Push(nil)
	assert.Equal(t, 0, s.Size())
}

func TestStack_PopDownToEmptyThenPushAgain(t *testing.T) {
	var s Stack
	s.Push("bottom")
	s.Push("middle")
	s.Push("top")
	assert.Equal(t, "top", s.Pop())
	assert.Equal(t, "middle", s.Pop())
	assert.Equal(t, "bottom", s.Pop())
	assert.Equal(t, 0, s.Size())
	assert.Nil(t, s.Pop())

	s.Push("fresh")
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, "fresh", s.Pop())
}
