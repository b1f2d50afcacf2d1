package bytecode

import (
	"fmt"

	"github.com/clflushopt/coldbrew/internal/value"
)

// Instruction pairs an Opcode with its pre-decoded operands, following
// the teacher's (Bytecode, arg) pair (vm/compile.go Instruction)
// generalized to an ordered operand list since this ISA's operand
// shapes vary more than gvm's single-uint32 arg.
type Instruction struct {
	Op       Opcode
	Operands []value.Value
}

func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Op.String()
	}
	return fmt.Sprintf("%s %v", i.Op, i.Operands)
}

// IntOperand returns the first operand as an int32, for the common case
// of local indices, branch offsets, and deltas.
func (i Instruction) IntOperand() int32 {
	if len(i.Operands) == 0 {
		return 0
	}
	return i.Operands[0].Int
}

// ErrMissingOperands indicates a decode expected immediates attached to
// an instruction but found none.
type ErrMissingOperands struct{ Op Opcode }

func (e *ErrMissingOperands) Error() string {
	return fmt.Sprintf("bytecode: %s: missing operands", e.Op)
}

// ErrInvalidOperandType indicates an immediate was the wrong tag, e.g. a
// non-int where a local index was expected.
type ErrInvalidOperandType struct{ Op Opcode }

func (e *ErrInvalidOperandType) Error() string {
	return fmt.Sprintf("bytecode: %s: invalid operand type", e.Op)
}

// branchBias is the JVM-quirk adjustment: every decoded branch offset
// is stored biased by -3, so eval code can add it directly to the
// already-advanced instruction index.
const branchBias = 3

// ShortFormOperand synthesizes the explicit integer operand the trace
// recorder canonicalizes short-form load/store/const opcodes to: the
// digit for load/store/iconst short forms, or the constant value for
// fconst/lconst/dconst short forms.
func (o Opcode) ShortFormOperand() (value.Value, bool) {
	switch o {
	case Iload0, Istore0, Lload0, Fload0, Dload0, Lstore0, Fstore0, Dstore0:
		return value.OfInt(0), true
	case Iload1, Istore1, Lload1, Fload1, Dload1, Lstore1, Fstore1, Dstore1:
		return value.OfInt(1), true
	case Iload2, Istore2, Lload2, Fload2, Dload2, Lstore2, Fstore2, Dstore2:
		return value.OfInt(2), true
	case Iload3, Istore3, Lload3, Fload3, Dload3, Lstore3, Fstore3, Dstore3:
		return value.OfInt(3), true
	case IconstM1:
		return value.OfInt(-1), true
	case Iconst0:
		return value.OfInt(0), true
	case Iconst1:
		return value.OfInt(1), true
	case Iconst2:
		return value.OfInt(2), true
	case Iconst3:
		return value.OfInt(3), true
	case Iconst4:
		return value.OfInt(4), true
	case Iconst5:
		return value.OfInt(5), true
	case Lconst0:
		return value.OfLong(0), true
	case Lconst1:
		return value.OfLong(1), true
	case Fconst0:
		return value.OfFloat(0), true
	case Fconst1:
		return value.OfFloat(1), true
	case Fconst2:
		return value.OfFloat(2), true
	case Dconst0:
		return value.OfDouble(0), true
	case Dconst1:
		return value.OfDouble(1), true
	default:
		return value.Value{}, false
	}
}

// CanonicalFamily maps a short-form load/store/const opcode to the
// opcode family the JIT lowering rules and the recorder canonicalize on
// (e.g. Iload0 -> Iload).
func (o Opcode) CanonicalFamily() Opcode {
	switch o {
	case Iload0, Iload1, Iload2, Iload3:
		return Iload
	case Lload0, Lload1, Lload2, Lload3:
		return Lload
	case Fload0, Fload1, Fload2, Fload3:
		return Fload
	case Dload0, Dload1, Dload2, Dload3:
		return Dload
	case Istore0, Istore1, Istore2, Istore3:
		return Istore
	case Lstore0, Lstore1, Lstore2, Lstore3:
		return Lstore
	case Fstore0, Fstore1, Fstore2, Fstore3:
		return Fstore
	case Dstore0, Dstore1, Dstore2, Dstore3:
		return Dstore
	case IconstM1, Iconst0, Iconst1, Iconst2, Iconst3, Iconst4, Iconst5:
		return Ldc
	case Lconst0, Lconst1:
		return Ldc2w
	case Fconst0, Fconst1, Fconst2:
		return Ldc
	case Dconst0, Dconst1:
		return Ldc2w
	default:
		return o
	}
}
