//go:build !amd64

package jit

import (
	"github.com/clflushopt/coldbrew/internal/frame"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/trace"
)

// lowerRecording has no backend on architectures other than amd64.
func lowerRecording(rec trace.Recording) (*NativeTrace, error) {
	return nil, ErrUnsupportedArch
}

// Execute never succeeds on an architecture without a lowering
// backend; HasNativeTrace will also never report true since Compile
// always fails first.
func (c *Compiler) Execute(pc program.PC, f *frame.Frame, maxLocals int) (program.PC, error) {
	return program.PC{}, ErrUnsupportedArch
}
