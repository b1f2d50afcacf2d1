package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterPoolTakeReleaseIsFIFO(t *testing.T) {
	p := newRegisterPool([]int16{10, 20, 30})

	first := p.take()
	second := p.take()
	assert.Equal(t, int16(10), first)
	assert.Equal(t, int16(20), second)

	p.release(first)
	third := p.take()
	assert.Equal(t, int16(30), third, "take should drain the original seed before reused registers")

	fourth := p.take()
	assert.Equal(t, first, fourth, "released register resurfaces at the tail of the queue")
}

func TestRegisterPoolTakeOnEmptyPanics(t *testing.T) {
	p := newRegisterPool([]int16{1})
	p.take()
	assert.Panics(t, func() { p.take() })
}

func TestRegisterPoolReset(t *testing.T) {
	scratch := []int16{1, 2, 3}
	p := newRegisterPool(scratch)
	p.take()
	p.take()

	p.reset(scratch)
	assert.Len(t, p.free, 3)
}
