package profiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clflushopt/coldbrew/internal/profiler"
	"github.com/clflushopt/coldbrew/internal/program"
)

func TestBackwardBranchIsCountedForward(t *testing.T) {
	p := profiler.New(profiler.DefaultThreshold)
	header := program.PC{MethodIndex: 0, InstructionIndex: 2}

	p.CountEntry(program.PC{MethodIndex: 0, InstructionIndex: 0})
	p.CountEntry(header)
	// A forward step (5 > 2) never counts header again.
	p.CountEntry(program.PC{MethodIndex: 0, InstructionIndex: 5})
	// A backward step back to header counts it.
	p.CountEntry(header)

	assert.Equal(t, 1, p.Count(header))
}

func TestHotAfterThresholdExceeded(t *testing.T) {
	p := profiler.New(1)
	header := program.PC{MethodIndex: 0, InstructionIndex: 2}
	later := program.PC{MethodIndex: 0, InstructionIndex: 5}

	p.CountEntry(header)
	assert.False(t, p.IsHot(header))

	p.CountEntry(later)
	p.CountEntry(header) // count=1, still not hot (threshold=1, need >1)
	assert.False(t, p.IsHot(header))

	p.CountEntry(later)
	p.CountEntry(header) // count=2, now hot
	assert.True(t, p.IsHot(header))
}

func TestDifferentMethodNeverCounts(t *testing.T) {
	p := profiler.New(0)
	p.CountEntry(program.PC{MethodIndex: 0, InstructionIndex: 5})
	p.CountEntry(program.PC{MethodIndex: 1, InstructionIndex: 0})
	assert.Equal(t, 0, p.Count(program.PC{MethodIndex: 1, InstructionIndex: 0}))
}
