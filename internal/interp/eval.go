package interp

import (
	"errors"
	"fmt"
	"math"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/frame"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/value"
)

// mustPop pops the top of f's operand stack. Stack underflow means a
// malformed input program, not a transient fault, so it panics;
// Interpreter.Run recovers it at the top level, mirroring the teacher's
// deferred-recover run loop.
func mustPop(f *frame.Frame) value.Value {
	v, err := f.Pop()
	if err != nil {
		panic(err)
	}
	return v
}

// operandOf returns the explicit integer/constant operand for inst,
// synthesizing it from the short-form opcode variant when decode left
// none attached (the short const/load/store forms carry no decoded
// immediates; their operand is implicit in the opcode byte).
func operandOf(inst bytecode.Instruction) value.Value {
	if v, ok := inst.Op.ShortFormOperand(); ok {
		return v
	}
	if len(inst.Operands) > 0 {
		return inst.Operands[0]
	}
	return value.Value{}
}

// eval executes one decoded instruction against f, advancing f.PC (or
// pushing/popping a frame) according to the per-opcode-family
// evaluation rules below.
func (in *Interpreter) eval(f *frame.Frame, pc, declPC program.PC, inst bytecode.Instruction) error {
	op := inst.Op

	switch {
	case isConstPush(op):
		f.Push(operandOf(inst))
		f.PC = declPC
		return nil

	case isLoadOp(op):
		idx := operandOf(inst).Int
		f.Push(f.GetLocal(idx))
		f.PC = declPC
		return nil

	case isStoreOp(op):
		idx := operandOf(inst).Int
		v := mustPop(f)
		f.SetLocal(idx, v)
		f.PC = declPC
		return nil

	case isBinaryArith(op):
		rhs, lhs := popPair(f)
		result, err := binaryArith(op, lhs, rhs)
		if err != nil {
			if errors.Is(err, value.ErrDivideByZero) {
				panic(err)
			}
			return &InvalidValueError{Op: op.String(), Err: err}
		}
		f.Push(result)
		f.PC = declPC
		return nil

	case op == bytecode.Iinc:
		idx := inst.Operands[0].Int
		delta := inst.Operands[1].Int
		cur := f.GetLocal(idx)
		f.SetLocal(idx, value.OfInt(cur.Int+delta))
		f.PC = declPC
		return nil

	case isConversion(op):
		v := mustPop(f)
		f.Push(v.ConvertTo(conversionTarget(op)))
		f.PC = declPC
		return nil

	case isComparison(op):
		rhs, lhs := popPair(f)
		cmp, err := compareForSense(op, lhs, rhs)
		if err != nil {
			return &InvalidValueError{Op: op.String(), Err: err}
		}
		f.Push(value.OfInt(int32(cmp)))
		f.PC = declPC
		return nil

	case isUnaryBranch(op):
		v := mustPop(f)
		f.PC = branchOrFallthrough(unaryTaken(op, v.Int), declPC, inst.IntOperand())
		return nil

	case isBinaryBranch(op):
		rhs, lhs := popPair(f)
		f.PC = branchOrFallthrough(binaryTaken(op, lhs.Int, rhs.Int), declPC, inst.IntOperand())
		return nil

	case op == bytecode.Goto:
		f.PC = declPC.Advance(inst.IntOperand())
		return nil

	case op == bytecode.Invokestatic:
		return in.evalInvokestatic(declPC, inst)

	case op.IsReturn():
		return in.evalTypedReturn(f)

	case op == bytecode.Return:
		in.frames = in.frames[:len(in.frames)-1]
		return nil

	case op == bytecode.Invokevirtual:
		v := mustPop(f)
		fmt.Println(v)
		f.PC = declPC
		return nil

	case op == bytecode.Getstatic, op == bytecode.Invokespecial,
		op == bytecode.Nop, op == bytecode.Dup:
		f.PC = declPC
		return nil

	default:
		f.PC = declPC
		return nil
	}
}

func branchOrFallthrough(taken bool, declPC program.PC, biasedOffset int32) program.PC {
	if taken {
		return declPC.Advance(biasedOffset)
	}
	return declPC
}

func popPair(f *frame.Frame) (rhs, lhs value.Value) {
	rhs = mustPop(f)
	lhs = mustPop(f)
	return rhs, lhs
}

func isConstPush(op bytecode.Opcode) bool {
	switch op {
	case bytecode.AconstNull,
		bytecode.IconstM1, bytecode.Iconst0, bytecode.Iconst1, bytecode.Iconst2,
		bytecode.Iconst3, bytecode.Iconst4, bytecode.Iconst5,
		bytecode.Lconst0, bytecode.Lconst1,
		bytecode.Fconst0, bytecode.Fconst1, bytecode.Fconst2,
		bytecode.Dconst0, bytecode.Dconst1,
		bytecode.Bipush, bytecode.Sipush, bytecode.Ldc, bytecode.Ldc2w:
		return true
	default:
		return false
	}
}

func isLoadOp(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Iload, bytecode.Lload, bytecode.Fload, bytecode.Dload,
		bytecode.Iload0, bytecode.Iload1, bytecode.Iload2, bytecode.Iload3,
		bytecode.Lload0, bytecode.Lload1, bytecode.Lload2, bytecode.Lload3,
		bytecode.Fload0, bytecode.Fload1, bytecode.Fload2, bytecode.Fload3,
		bytecode.Dload0, bytecode.Dload1, bytecode.Dload2, bytecode.Dload3:
		return true
	default:
		return false
	}
}

func isStoreOp(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Istore, bytecode.Lstore, bytecode.Fstore, bytecode.Dstore,
		bytecode.Istore0, bytecode.Istore1, bytecode.Istore2, bytecode.Istore3,
		bytecode.Lstore0, bytecode.Lstore1, bytecode.Lstore2, bytecode.Lstore3,
		bytecode.Fstore0, bytecode.Fstore1, bytecode.Fstore2, bytecode.Fstore3,
		bytecode.Dstore0, bytecode.Dstore1, bytecode.Dstore2, bytecode.Dstore3:
		return true
	default:
		return false
	}
}

func isBinaryArith(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Iadd, bytecode.Ladd, bytecode.Fadd, bytecode.Dadd,
		bytecode.Isub, bytecode.Lsub, bytecode.Fsub, bytecode.Dsub,
		bytecode.Imul, bytecode.Lmul, bytecode.Fmul, bytecode.Dmul,
		bytecode.Idiv, bytecode.Ldiv, bytecode.Fdiv, bytecode.Ddiv,
		bytecode.Irem, bytecode.Lrem, bytecode.Frem, bytecode.Drem:
		return true
	default:
		return false
	}
}

// binaryArith dispatches to the value package's typed op. Operand order
// is lhs-under-rhs: pop yields rhs first.
func binaryArith(op bytecode.Opcode, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case bytecode.Iadd, bytecode.Ladd, bytecode.Fadd, bytecode.Dadd:
		return value.Add(lhs, rhs)
	case bytecode.Isub, bytecode.Lsub, bytecode.Fsub, bytecode.Dsub:
		return value.Sub(lhs, rhs)
	case bytecode.Imul, bytecode.Lmul, bytecode.Fmul, bytecode.Dmul:
		return value.Mul(lhs, rhs)
	case bytecode.Idiv, bytecode.Ldiv, bytecode.Fdiv, bytecode.Ddiv:
		return value.Div(lhs, rhs)
	case bytecode.Irem, bytecode.Lrem, bytecode.Frem, bytecode.Drem:
		return value.Rem(lhs, rhs)
	default:
		return value.Value{}, fmt.Errorf("interp: %s is not arithmetic", op)
	}
}

func isConversion(op bytecode.Opcode) bool {
	switch op {
	case bytecode.I2l, bytecode.I2f, bytecode.I2d,
		bytecode.L2i, bytecode.L2f, bytecode.L2d,
		bytecode.F2i, bytecode.F2l, bytecode.F2d,
		bytecode.D2i, bytecode.D2l, bytecode.D2f:
		return true
	default:
		return false
	}
}

func conversionTarget(op bytecode.Opcode) value.Kind {
	switch op {
	case bytecode.I2l, bytecode.F2l, bytecode.D2l:
		return value.Long
	case bytecode.I2f, bytecode.L2f, bytecode.D2f:
		return value.Float
	case bytecode.I2d, bytecode.L2d, bytecode.F2d:
		return value.Double
	case bytecode.L2i, bytecode.F2i, bytecode.D2i:
		return value.Int
	default:
		return value.Int
	}
}

func isComparison(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Lcmp, bytecode.Fcmpl, bytecode.Fcmpg, bytecode.Dcmpl, bytecode.Dcmpg:
		return true
	default:
		return false
	}
}

// compareForSense implements lcmp/fcmpl/fcmpg/dcmpl/dcmpg: fcmpg/dcmpg
// report 1 when either operand is NaN, fcmpl/dcmpl report -1, matching
// the JVM's unordered-comparison convention the plain value.Compare
// total order does not encode.
func compareForSense(op bytecode.Opcode, lhs, rhs value.Value) (int, error) {
	switch op {
	case bytecode.Fcmpg:
		if math.IsNaN(float64(lhs.Float)) || math.IsNaN(float64(rhs.Float)) {
			return 1, nil
		}
	case bytecode.Fcmpl:
		if math.IsNaN(float64(lhs.Float)) || math.IsNaN(float64(rhs.Float)) {
			return -1, nil
		}
	case bytecode.Dcmpg:
		if math.IsNaN(lhs.Double) || math.IsNaN(rhs.Double) {
			return 1, nil
		}
	case bytecode.Dcmpl:
		if math.IsNaN(lhs.Double) || math.IsNaN(rhs.Double) {
			return -1, nil
		}
	}
	return value.Compare(lhs, rhs)
}

func isUnaryBranch(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Ifeq, bytecode.Ifne, bytecode.Iflt, bytecode.Ifge, bytecode.Ifgt, bytecode.Ifle:
		return true
	default:
		return false
	}
}

func isBinaryBranch(op bytecode.Opcode) bool {
	switch op {
	case bytecode.IfIcmpeq, bytecode.IfIcmpne, bytecode.IfIcmplt,
		bytecode.IfIcmpge, bytecode.IfIcmpgt, bytecode.IfIcmple:
		return true
	default:
		return false
	}
}

func unaryTaken(op bytecode.Opcode, v int32) bool {
	switch op {
	case bytecode.Ifeq:
		return v == 0
	case bytecode.Ifne:
		return v != 0
	case bytecode.Iflt:
		return v < 0
	case bytecode.Ifge:
		return v >= 0
	case bytecode.Ifgt:
		return v > 0
	case bytecode.Ifle:
		return v <= 0
	default:
		return false
	}
}

func binaryTaken(op bytecode.Opcode, lhs, rhs int32) bool {
	switch op {
	case bytecode.IfIcmpeq:
		return lhs == rhs
	case bytecode.IfIcmpne:
		return lhs != rhs
	case bytecode.IfIcmplt:
		return lhs < rhs
	case bytecode.IfIcmpge:
		return lhs >= rhs
	case bytecode.IfIcmpgt:
		return lhs > rhs
	case bytecode.IfIcmple:
		return lhs <= rhs
	default:
		return false
	}
}

// evalInvokestatic builds the callee frame: pop arguments in call
// order, lay them into the callee's locals (longs and doubles consuming
// two slots), and push the frame. The caller frame's PC is advanced
// past the invokestatic before the push so a later return resumes in
// the right place.
func (in *Interpreter) evalInvokestatic(declPC program.PC, inst bytecode.Instruction) error {
	caller := in.top()
	caller.PC = declPC

	nameIndex := inst.IntOperand()
	calleeIndex, err := in.prog.MethodIndexByName(int(nameIndex))
	if err != nil {
		return err
	}
	callee, err := in.prog.Method(calleeIndex)
	if err != nil {
		return err
	}

	args, err := caller.PopArgs(len(callee.ArgTypes))
	if err != nil {
		panic(err)
	}

	calleeFrame := frame.New(program.PC{MethodIndex: calleeIndex, InstructionIndex: 0})
	slot := int32(0)
	for i, kind := range callee.ArgTypes {
		calleeFrame.SetLocal(slot, args[i])
		slot += int32(kind.Slots())
	}

	in.frames = append(in.frames, calleeFrame)
	return nil
}

// evalTypedReturn pops the current frame, forwards its top-of-stack
// value to the new top frame (if any), and records it in the
// observation side list.
func (in *Interpreter) evalTypedReturn(f *frame.Frame) error {
	v := mustPop(f)
	in.frames = in.frames[:len(in.frames)-1]
	in.returns = append(in.returns, v)
	if len(in.frames) > 0 {
		in.top().Push(v)
	}
	return nil
}
