package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clflushopt/coldbrew/internal/program"
)

func TestCacheLookupMissOnEmptyCache(t *testing.T) {
	c := NewCache()
	pc := program.PC{MethodIndex: 0, InstructionIndex: 0}

	assert.False(t, c.HasNativeTrace(pc))
	_, ok := c.Lookup(pc)
	assert.False(t, ok)
}

func TestCacheInstallThenLookup(t *testing.T) {
	c := NewCache()
	pc := program.PC{MethodIndex: 1, InstructionIndex: 4}
	nt := &NativeTrace{EntryOffset: 0}

	c.install(pc, nt)

	assert.True(t, c.HasNativeTrace(pc))
	got, ok := c.Lookup(pc)
	assert.True(t, ok)
	assert.Same(t, nt, got)
}

func TestCacheIsKeyedByFullPC(t *testing.T) {
	c := NewCache()
	a := program.PC{MethodIndex: 0, InstructionIndex: 4}
	b := program.PC{MethodIndex: 1, InstructionIndex: 4}
	c.install(a, &NativeTrace{})

	assert.True(t, c.HasNativeTrace(a))
	assert.False(t, c.HasNativeTrace(b))
}
