package interp

import (
	"fmt"

	"github.com/clflushopt/coldbrew/internal/program"
)

// InvalidValueError reports that an arithmetic or comparison op
// received insufficient operands or a type combination it cannot serve.
type InvalidValueError struct {
	Op  string
	Err error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("interp: %s: invalid value: %v", e.Op, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// UnknownOpcodeError is raised for a decoded byte that maps to
// bytecode.Unspecified; an unknown opcode is a fatal fault, not a
// recoverable one.
type UnknownOpcodeError struct {
	PC program.PC
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("interp: unknown opcode at %s", e.PC)
}
