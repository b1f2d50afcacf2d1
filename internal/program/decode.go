package program

import (
	"fmt"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/value"
)

// Decode fetches and decodes the instruction at pc: reads the opcode
// byte, advances the instruction index past it and its immediates, and
// returns the decoded Instruction plus the PC of the next instruction.
func (p *Program) Decode(pc PC) (bytecode.Instruction, PC, error) {
	code, err := p.Code(pc.MethodIndex)
	if err != nil {
		return bytecode.Instruction{}, PC{}, err
	}
	if pc.InstructionIndex < 0 || pc.InstructionIndex >= len(code) {
		return bytecode.Instruction{}, PC{}, fmt.Errorf("program: pc %s out of bounds", pc)
	}

	op := bytecode.Decode(code[pc.InstructionIndex])
	next := pc.InstructionIndex + 1

	switch {
	case isBranchOpcode(op):
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		raw := int16(uint16(code[next])<<8 | uint16(code[next+1]))
		next += 2
		// Bias by -3: eval code adds this directly as a jump delta from
		// the already-advanced instruction index.
		biased := int32(raw) - 3
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(biased)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Invokestatic:
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		poolIndex := int(uint16(code[next])<<8 | uint16(code[next+1]))
		next += 2
		nameIndex, err := p.resolveMethodNameIndex(poolIndex)
		if err != nil {
			return bytecode.Instruction{}, PC{}, err
		}
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(int32(nameIndex))}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Ldc2w:
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		poolIndex := int(uint16(code[next])<<8 | uint16(code[next+1]))
		next += 2
		v, err := p.resolveWideConstant(poolIndex)
		if err != nil {
			return bytecode.Instruction{}, PC{}, err
		}
		return bytecode.Instruction{Op: op, Operands: []value.Value{v}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Ldc:
		if next+1 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		poolIndex := int(code[next])
		next++
		v, err := p.resolveNarrowConstant(poolIndex)
		if err != nil {
			return bytecode.Instruction{}, PC{}, err
		}
		return bytecode.Instruction{Op: op, Operands: []value.Value{v}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Bipush:
		if next+1 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		v := int32(int8(code[next]))
		next++
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(v)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Sipush:
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		v := int32(int16(uint16(code[next])<<8 | uint16(code[next+1])))
		next += 2
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(v)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case isIndexedLoadStore(op):
		if next+1 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		idx := int32(code[next])
		next++
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(idx)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Iinc:
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		idx := int32(code[next])
		delta := int32(int8(code[next+1]))
		next += 2
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(idx), value.OfInt(delta)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	case op == bytecode.Getstatic || op == bytecode.Invokespecial || op == bytecode.Invokevirtual:
		if next+2 > len(code) {
			return bytecode.Instruction{}, PC{}, &bytecode.ErrMissingOperands{Op: op}
		}
		b0, b1 := int32(code[next]), int32(code[next+1])
		next += 2
		return bytecode.Instruction{Op: op, Operands: []value.Value{value.OfInt(b0), value.OfInt(b1)}},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil

	default:
		// No immediates: nop, short const/load/store forms, arithmetic,
		// conversions, comparisons, dup, typed/void returns.
		return bytecode.Instruction{Op: op},
			PC{MethodIndex: pc.MethodIndex, InstructionIndex: next}, nil
	}
}

func isBranchOpcode(op bytecode.Opcode) bool {
	return op.IsConditionalBranch() || op == bytecode.Goto
}

// isIndexedLoadStore reports the long-form load/store opcodes that take
// a 1-byte local index (the short forms iload_0 etc. take no bytes at
// all and are handled by the default case).
func isIndexedLoadStore(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Iload, bytecode.Lload, bytecode.Fload, bytecode.Dload,
		bytecode.Istore, bytecode.Lstore, bytecode.Fstore, bytecode.Dstore:
		return true
	default:
		return false
	}
}

func (p *Program) resolveMethodNameIndex(methodrefIndex int) (int, error) {
	return p.ConstantPool().MethodNameIndex(methodrefIndex)
}

func (p *Program) resolveWideConstant(poolIndex int) (value.Value, error) {
	pool := p.ConstantPool()
	if l, err := pool.LongAt(poolIndex); err == nil {
		return value.OfLong(l), nil
	}
	if d, err := pool.DoubleAt(poolIndex); err == nil {
		return value.OfDouble(d), nil
	}
	return value.Value{}, fmt.Errorf("program: constant %d is not Long/Double", poolIndex)
}

func (p *Program) resolveNarrowConstant(poolIndex int) (value.Value, error) {
	pool := p.ConstantPool()
	if i, err := pool.IntegerAt(poolIndex); err == nil {
		return value.OfInt(i), nil
	}
	if f, err := pool.FloatAt(poolIndex); err == nil {
		return value.OfFloat(f), nil
	}
	return value.Value{}, fmt.Errorf("program: constant %d is not Int/Float", poolIndex)
}
