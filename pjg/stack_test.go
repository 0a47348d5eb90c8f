package pjg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalStack(t *testing.T) {
	s := NewLocalStack()
	s.Increase(2)
	s.Decrease(1)
	s.Increase(3)
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, 5, s.Capacity())
	s.Decrease(4)
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 5, s.Capacity())

	s.Reset()
	assert.Equal(t, 0, s.Capacity())
	assert.Panics(t, func() { s.Decrease(1) })
}

func TestLocalStackLabels(t *testing.T) {
	s := NewLocalStack()
	join := NewLabel()
	s.Increase(1)
	s.branch(join)
	s.stop()
	s.Increase(7) // unreachable code does not matter
	s.place(join)
	assert.Equal(t, 1, s.Size())

	back := NewLabel()
	s.place(back)
	s.Increase(1)
	assert.Panics(t, func() { s.branch(back) })
}

func TestLocalVariables(t *testing.T) {
	lv := NewLocalVariables(3)
	assert.Equal(t, 3, lv.Count())
	a := lv.Reserve()
	b := lv.Reserve()
	assert.Equal(t, 3, a)
	assert.Equal(t, 4, b)
	assert.Equal(t, 5, lv.Count())
	assert.Panics(t, func() { lv.Release(a) })
	lv.Release(b)
	lv.Release(a)
	assert.Equal(t, 3, lv.Reserve())
	assert.Equal(t, 5, lv.Count())
}
