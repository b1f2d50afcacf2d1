// Package frame implements the per-invocation activation record the
// interpreter pushes and pops: a program counter, an operand stack, and
// a sparse local-variable map. This generalizes the teacher's flat
// register file (gvm vm/vm.go's VM.registers) to a stack-of-frames call
// model, since this ISA supports static calls the teacher's register VM
// does not.
package frame

import (
	"fmt"

	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/value"
)

// ErrStackUnderflow is a fatal fault: a control-flow or arithmetic
// opcode tried to pop more values than the operand stack holds.
var ErrStackUnderflow = fmt.Errorf("frame: operand stack underflow")

// Frame is one active method invocation. Locals are sparse: the mapping
// from local-variable index to value is sparse, and an absent index
// means uninitialized.
type Frame struct {
	PC     program.PC
	stack  []value.Value
	locals map[int32]value.Value
}

// New creates an empty frame at pc: empty operand stack, empty locals.
func New(pc program.PC) *Frame {
	return &Frame{PC: pc, locals: make(map[int32]value.Value)}
}

// Push appends v to the top of the operand stack.
func (f *Frame) Push(v value.Value) {
	f.stack = append(f.stack, v)
}

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() (value.Value, error) {
	if len(f.stack) == 0 {
		return value.Value{}, ErrStackUnderflow
	}
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v, nil
}

// StackDepth reports the current operand-stack size, mostly useful for
// tests asserting well-formedness.
func (f *Frame) StackDepth() int { return len(f.stack) }

// GetLocal reads the local at index; a never-written local reads as the
// int zero value, generalizing iinc's "insert the delta if absent" rule
// to reads.
func (f *Frame) GetLocal(index int32) value.Value {
	if v, ok := f.locals[index]; ok {
		return v
	}
	return value.OfInt(0)
}

// SetLocal writes v into the local at index.
func (f *Frame) SetLocal(index int32, v value.Value) {
	f.locals[index] = v
}

// Locals exposes the sparse local map, read-only, for the JIT's
// flatten/reconstitute step.
func (f *Frame) Locals() map[int32]value.Value { return f.locals }

// PopArgs pops n values off the stack in call order (first-pushed
// first), for building a callee's argument locals. Args are pushed by
// the caller in left-to-right order, so popping yields them
// right-to-left; PopArgs reverses that back to left-to-right.
func (f *Frame) PopArgs(n int) ([]value.Value, error) {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
