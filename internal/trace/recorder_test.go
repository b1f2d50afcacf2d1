package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/trace"
	"github.com/clflushopt/coldbrew/internal/value"
)

func noRecursion(int32) (int, bool) { return 0, false }

// pc is a small helper for building PCs in method 0.
func pc(i int) program.PC { return program.PC{MethodIndex: 0, InstructionIndex: i} }

func TestInitStartsRecording(t *testing.T) {
	r := trace.New(noRecursion)
	assert.False(t, r.IsRecording())
	r.Init(pc(0), pc(0))
	assert.True(t, r.IsRecording())
}

func TestInitSameStartIsNoop(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Iconst1})
	r.Init(pc(0), pc(0)) // same start: must not clear entries
	rec := r.Snapshot()
	assert.Len(t, rec.Entries, 1)
}

func TestBackwardGotoToStartIsInnerAndNotAppended(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(5), pc(5))
	// goto -3 from pc(5) targets pc(5) itself (entry pc + 3 + (-3)): inner.
	r.Record(pc(5), bytecode.Instruction{Op: bytecode.Goto, Operands: []value.Value{value.OfInt(-3)}})
	rec := r.Snapshot()
	assert.Empty(t, rec.Entries)
	assert.Contains(t, rec.Inner, pc(5))
}

func TestBackwardGotoAwayFromStartIsOuter(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	// goto -6 from pc(5) targets pc(2) (5+3-6), which isn't start(0): outer.
	r.Record(pc(5), bytecode.Instruction{Op: bytecode.Goto, Operands: []value.Value{value.OfInt(-6)}})
	rec := r.Snapshot()
	assert.Empty(t, rec.Entries)
	assert.Contains(t, rec.Outer, pc(2))
}

func TestConditionalBranchNotTakenStaysUnflipped(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	// ifeq at pc(0), pre-biased offset such that target != next pc: not taken.
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Ifeq, Operands: []value.Value{value.OfInt(7)}})
	// next instruction recorded at pc(3) (fall-through, since branch len=3)
	r.Record(pc(3), bytecode.Instruction{Op: bytecode.Return})

	rec := r.Snapshot()
	require.Len(t, rec.Entries, 2)
	assert.Equal(t, bytecode.Ifeq, rec.Entries[0].Inst.Op)
	assert.Equal(t, int32(7), rec.Entries[0].Inst.IntOperand())
}

func TestConditionalBranchTakenIsFlippedToPlusThree(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	// ifne at pc(0) with biased offset -3 (targets pc(0)): taken, since next
	// recorded pc is pc(0) (loop re-entry).
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Ifne, Operands: []value.Value{value.OfInt(-3)}})
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Return})

	rec := r.Snapshot()
	require.GreaterOrEqual(t, len(rec.Entries), 1)
	assert.Equal(t, bytecode.Ifeq, rec.Entries[0].Inst.Op)
	assert.Equal(t, int32(3), rec.Entries[0].Inst.IntOperand())
	assert.Contains(t, rec.Inner, pc(6))
}

func TestRecursiveInvokestaticAborts(t *testing.T) {
	resolve := func(nameIndex int32) (int, bool) { return 0, true } // resolves to method 0, same as start
	r := trace.New(resolve)
	r.Init(pc(0), pc(0))
	ok := r.Record(pc(1), bytecode.Instruction{Op: bytecode.Invokestatic, Operands: []value.Value{value.OfInt(42)}})
	assert.False(t, ok)
	assert.False(t, r.IsRecording())
}

func TestShortFormIsCanonicalized(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Iload2})

	rec := r.Snapshot()
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, bytecode.Iload, rec.Entries[0].Inst.Op)
	assert.Equal(t, int32(2), rec.Entries[0].Inst.IntOperand())
}

func TestIsDoneRecordingAtLoopHeader(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Iconst1})
	assert.False(t, r.IsDoneRecording(pc(1)))
	assert.True(t, r.IsDoneRecording(pc(0)))
}

func TestReturnInSameMethodAbortsOpenEndedRecording(t *testing.T) {
	r := trace.New(noRecursion)
	r.Init(pc(0), pc(0))
	r.Record(pc(0), bytecode.Instruction{Op: bytecode.Ireturn})
	done := r.IsDoneRecording(pc(5))
	assert.False(t, done)
	assert.False(t, r.IsRecording())
}
