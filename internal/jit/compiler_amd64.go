//go:build amd64

package jit

import (
	"fmt"

	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/frame"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/trace"
	"github.com/clflushopt/coldbrew/internal/value"
)

// scratchRegisters seeds the FIFO pool of allocatable registers. rdi/rsi
// carry the locals and exits base pointers and must never be allocated
// as scratch; rdx, rbp and rsp are not in the pool either.
var scratchRegisters = []int16{
	x86.REG_AX, x86.REG_CX, x86.REG_R8, x86.REG_R9, x86.REG_R10,
	x86.REG_R11, x86.REG_BX, x86.REG_R12, x86.REG_R13, x86.REG_R14, x86.REG_R15,
}

type operandKind int

const (
	opReg operandKind = iota
	opImm
)

// operand is a lowering-time operand-stack entry: either a register
// holding a live value, or an unmaterialized immediate folded into the
// next consuming instruction. bipush/sipush/ldc (int) push such an
// immediate with no code emitted until something actually consumes it.
type operand struct {
	kind operandKind
	reg  int16
	imm  int32
}

// amd64Lowerer drives one compile call: a fresh assembler builder, the
// scratch register pool, an operand stack, and the guard exits waiting
// for their stubs. It keeps no per-entry label map, so no recorded entry
// can be a jump target; the only back-edge is the single jump from the
// end of the body to its start. Modeled directly on wazero's
// amd64Builder (other_examples/jit_amd64.go).
type amd64Lowerer struct {
	builder *asm.Builder
	regs    *registerPool
	stack   []operand

	guardExits []guardExit
}

// guardExit pairs a conditional jump emitted for a guard with the
// interpreter PC execution should resume at when that guard fires.
type guardExit struct {
	jmp    *obj.Prog
	exitPC int32
}

func lowerRecording(rec trace.Recording) (*NativeTrace, error) {
	b, err := asm.NewBuilder("amd64", 256)
	if err != nil {
		return nil, fmt.Errorf("jit: new builder: %w", err)
	}
	l := &amd64Lowerer{
		builder: b,
		regs:    newRegisterPool(scratchRegisters),
	}

	bodyStart := l.newProg()
	bodyStart.As = obj.ANOP
	l.prologue()
	l.add(bodyStart)

	for _, entry := range rec.Entries {
		if err := l.lower(entry); err != nil {
			return nil, fmt.Errorf("jit: lowering %s at %s: %w", entry.Inst.Op, entry.PC, err)
		}
	}

	// The recorder only ever stops a recording back at its own loop
	// header (trace.Recorder.IsDoneRecording), so a completed trace is
	// one full loop iteration: looping natively means jumping back to
	// the first instruction after the prologue rather than re-entering
	// the interpreter.
	loopBack := l.newProg()
	loopBack.As = obj.AJMP
	loopBack.To.Type = obj.TYPE_BRANCH
	loopBack.To.SetTarget(bodyStart)
	l.add(loopBack)

	l.emitGuardExitTail()

	raw, err := l.builder.Assemble()
	if err != nil {
		return nil, fmt.Errorf("jit: assemble: %w", err)
	}
	page, entry, err := mmapExecutable(raw)
	if err != nil {
		return nil, err
	}
	return &NativeTrace{EntryOffset: 0, code: page, entry: entry}, nil
}

func (l *amd64Lowerer) newProg() *obj.Prog {
	return l.builder.NewProg()
}

func (l *amd64Lowerer) add(prog *obj.Prog) {
	l.builder.AddInstruction(prog)
}

// prologue: push rbp, mov rbp, rsp, spill rdi/rsi to their reserved
// slots.
func (l *amd64Lowerer) prologue() {
	push := l.newProg()
	push.As = x86.APUSHQ
	push.To.Type = obj.TYPE_REG
	push.To.Reg = x86.REG_BP
	l.add(push)

	movSP := l.newProg()
	movSP.As = x86.AMOVQ
	movSP.From.Type = obj.TYPE_REG
	movSP.From.Reg = x86.REG_SP
	movSP.To.Type = obj.TYPE_REG
	movSP.To.Reg = x86.REG_BP
	l.add(movSP)

	spill := func(reg int16, offset int64) {
		prog := l.newProg()
		prog.As = x86.AMOVQ
		prog.From.Type = obj.TYPE_REG
		prog.From.Reg = reg
		prog.To.Type = obj.TYPE_MEM
		prog.To.Reg = x86.REG_BP
		prog.To.Offset = offset
		l.add(prog)
	}
	spill(x86.REG_DI, -24)
	spill(x86.REG_SI, -32)
}

// epilogue: pop rbp, ret. rax must already carry the exit PC.
func (l *amd64Lowerer) epilogue() {
	pop := l.newProg()
	pop.As = x86.APOPQ
	pop.To.Type = obj.TYPE_REG
	pop.To.Reg = x86.REG_BP
	l.add(pop)

	ret := l.newProg()
	ret.As = obj.ARET
	l.add(ret)
}

func (l *amd64Lowerer) push(op operand)  { l.stack = append(l.stack, op) }
func (l *amd64Lowerer) pop() operand {
	n := len(l.stack) - 1
	op := l.stack[n]
	l.stack = l.stack[:n]
	return op
}

// materialize forces op into a register, allocating one from the pool
// if it is currently a bare immediate.
func (l *amd64Lowerer) materialize(op operand) int16 {
	if op.kind == opReg {
		return op.reg
	}
	reg := l.regs.take()
	prog := l.newProg()
	prog.As = x86.AMOVL
	prog.From.Type = obj.TYPE_CONST
	prog.From.Offset = int64(op.imm)
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = reg
	l.add(prog)
	return reg
}

func (l *amd64Lowerer) lower(e trace.Entry) error {
	switch {
	case isLoadFamily(e.Inst.Op):
		dst := l.regs.take()
		prog := l.newProg()
		prog.As = x86.AMOVL
		prog.From.Type = obj.TYPE_MEM
		prog.From.Reg = x86.REG_DI
		prog.From.Offset = int64(e.Inst.IntOperand()) * 4
		prog.To.Type = obj.TYPE_REG
		prog.To.Reg = dst
		l.add(prog)
		l.push(operand{kind: opReg, reg: dst})
		return nil

	case isStoreFamily(e.Inst.Op):
		src := l.pop()
		reg := l.materialize(src)
		prog := l.newProg()
		prog.As = x86.AMOVL
		prog.From.Type = obj.TYPE_REG
		prog.From.Reg = reg
		prog.To.Type = obj.TYPE_MEM
		prog.To.Reg = x86.REG_DI
		prog.To.Offset = int64(e.Inst.IntOperand()) * 4
		l.add(prog)
		l.regs.release(reg)
		return nil

	case e.Inst.Op == bytecode.Bipush, e.Inst.Op == bytecode.Sipush, e.Inst.Op == bytecode.Ldc:
		l.push(operand{kind: opImm, imm: e.Inst.IntOperand()})
		return nil

	case e.Inst.Op == bytecode.Iadd || e.Inst.Op == bytecode.Isub || e.Inst.Op == bytecode.Imul:
		return l.lowerBinaryArith(e.Inst.Op)

	case e.Inst.Op == bytecode.Idiv || e.Inst.Op == bytecode.Irem:
		return l.lowerDivRem(e.Inst.Op)

	case e.Inst.Op == bytecode.Iinc:
		prog := l.newProg()
		prog.As = x86.AADDL
		prog.From.Type = obj.TYPE_CONST
		prog.From.Offset = int64(e.Inst.Operands[1].Int)
		prog.To.Type = obj.TYPE_MEM
		prog.To.Reg = x86.REG_DI
		prog.To.Offset = int64(e.Inst.Operands[0].Int) * 4
		l.add(prog)
		return nil

	case e.Inst.Op.IsConditionalBranch():
		return l.lowerGuard(e)

	default:
		// Everything this lowering rule set doesn't name (dup, nop,
		// getstatic, returns inside straight-line traces, etc.) is a
		// no-op at the native level; the interpreter handles these when
		// execution falls back out of the trace.
		return nil
	}
}

func isLoadFamily(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Iload, bytecode.Lload, bytecode.Fload, bytecode.Dload:
		return true
	default:
		return false
	}
}

func isStoreFamily(op bytecode.Opcode) bool {
	switch op {
	case bytecode.Istore, bytecode.Lstore, bytecode.Fstore, bytecode.Dstore:
		return true
	default:
		return false
	}
}

// lowerBinaryArith implements iadd/isub/imul: pop rhs, pop lhs;
// materialize lhs into a register if needed; emit the op with rhs as a
// register or immediate operand; free rhs's register if any; push the
// result register.
func (l *amd64Lowerer) lowerBinaryArith(op bytecode.Opcode) error {
	rhs := l.pop()
	lhs := l.pop()
	dst := l.materialize(lhs)

	prog := l.newProg()
	switch op {
	case bytecode.Iadd:
		prog.As = x86.AADDL
	case bytecode.Isub:
		prog.As = x86.ASUBL
	case bytecode.Imul:
		prog.As = x86.AIMULL
	default:
		return fmt.Errorf("jit: unsupported arithmetic opcode %s", op)
	}
	prog.To.Type = obj.TYPE_REG
	prog.To.Reg = dst
	if rhs.kind == opImm {
		prog.From.Type = obj.TYPE_CONST
		prog.From.Offset = int64(rhs.imm)
	} else {
		prog.From.Type = obj.TYPE_REG
		prog.From.Reg = rhs.reg
	}
	l.add(prog)

	if rhs.kind == opReg {
		l.regs.release(rhs.reg)
	}
	l.push(operand{kind: opReg, reg: dst})
	return nil
}

// lowerDivRem implements idiv/irem: move the numerator into rax,
// sign-extend into rdx, divide, then move the quotient (rax) or
// remainder (rdx) to a fresh destination register.
func (l *amd64Lowerer) lowerDivRem(op bytecode.Opcode) error {
	denom := l.pop()
	numer := l.pop()

	numerReg := l.materialize(numer)
	movNumer := l.newProg()
	movNumer.As = x86.AMOVL
	movNumer.From.Type = obj.TYPE_REG
	movNumer.From.Reg = numerReg
	movNumer.To.Type = obj.TYPE_REG
	movNumer.To.Reg = x86.REG_AX
	l.add(movNumer)
	if numerReg != x86.REG_AX {
		l.regs.release(numerReg)
	}

	cdq := l.newProg()
	cdq.As = x86.ACDQ
	l.add(cdq)

	denomReg := l.materialize(denom)
	div := l.newProg()
	div.As = x86.AIDIVL
	div.From.Type = obj.TYPE_REG
	div.From.Reg = denomReg
	l.add(div)
	if denomReg != x86.REG_AX && denomReg != x86.REG_DX {
		l.regs.release(denomReg)
	}

	dst := l.regs.take()
	src := int16(x86.REG_AX)
	if op == bytecode.Irem {
		src = x86.REG_DX
	}
	movResult := l.newProg()
	movResult.As = x86.AMOVL
	movResult.From.Type = obj.TYPE_REG
	movResult.From.Reg = src
	movResult.To.Type = obj.TYPE_REG
	movResult.To.Reg = dst
	l.add(movResult)

	l.push(operand{kind: opReg, reg: dst})
	return nil
}

// conditionalJump maps an already-flipped branch opcode to the x86
// conditional jump whose condition matches "exit the trace if taken".
func conditionalJump(op bytecode.Opcode) (obj.As, bool) {
	switch op {
	case bytecode.Ifeq:
		return x86.AJEQ, true
	case bytecode.Ifne:
		return x86.AJNE, true
	case bytecode.Iflt:
		return x86.AJLT, true
	case bytecode.Ifge:
		return x86.AJGE, true
	case bytecode.Ifgt:
		return x86.AJGT, true
	case bytecode.Ifle:
		return x86.AJLE, true
	case bytecode.IfIcmpeq:
		return x86.AJEQ, false
	case bytecode.IfIcmpne:
		return x86.AJNE, false
	case bytecode.IfIcmplt:
		return x86.AJLT, false
	case bytecode.IfIcmpge:
		return x86.AJGE, false
	case bytecode.IfIcmpgt:
		return x86.AJGT, false
	case bytecode.IfIcmple:
		return x86.AJLE, false
	default:
		return 0, false
	}
}

// lowerGuard lowers a (post-flip) conditional branch entry to a cmp +
// conditional jump into the shared guard-exit tail, recording the exit
// PC that guard corresponds to.
func (l *amd64Lowerer) lowerGuard(e trace.Entry) error {
	jccOp, unary := conditionalJump(e.Inst.Op)

	var lhsReg int16
	if unary {
		lhsOperand := l.pop()
		lhsReg = l.materialize(lhsOperand)
		cmp := l.newProg()
		cmp.As = x86.ACMPL
		cmp.From.Type = obj.TYPE_REG
		cmp.From.Reg = lhsReg
		cmp.To.Type = obj.TYPE_CONST
		cmp.To.Offset = 0
		l.add(cmp)
	} else {
		rhs := l.pop()
		lhs := l.pop()
		lhsReg = l.materialize(lhs)
		cmp := l.newProg()
		cmp.As = x86.ACMPL
		cmp.From.Type = obj.TYPE_REG
		cmp.From.Reg = lhsReg
		if rhs.kind == opImm {
			cmp.To.Type = obj.TYPE_CONST
			cmp.To.Offset = int64(rhs.imm)
		} else {
			cmp.To.Type = obj.TYPE_REG
			cmp.To.Reg = rhs.reg
			l.regs.release(rhs.reg)
		}
		l.add(cmp)
	}
	l.regs.release(lhsReg)

	jmp := l.newProg()
	jmp.As = jccOp
	jmp.To.Type = obj.TYPE_BRANCH
	l.add(jmp)

	// A guard whose branch was taken while recording has been negated by
	// the recorder with its offset rewritten to +3; one that was not
	// taken keeps its original offset. Either way the exit PC uses the
	// same entryPC+3+offset arithmetic the recorder and interpreter use.
	exitPC := e.PC.Advance(3 + e.Inst.IntOperand())
	l.guardExits = append(l.guardExits, guardExit{jmp: jmp, exitPC: int32(exitPC.InstructionIndex)})
	return nil
}

// emitGuardExitTail emits one small stub per guard (mov eax, <exit pc>;
// jmp tail) followed by the single shared tail that pops rbp and
// returns. Every guard's conditional
// jump targets its own stub, and every stub falls through to the same
// tail, so the epilogue itself is emitted exactly once regardless of
// how many guards the trace contains.
func (l *amd64Lowerer) emitGuardExitTail() {
	tail := l.newProg()
	tail.As = obj.ANOP

	for _, g := range l.guardExits {
		stub := l.newProg()
		stub.As = obj.ANOP
		l.add(stub)
		g.jmp.To.SetTarget(stub)

		movExit := l.newProg()
		movExit.As = x86.AMOVQ
		movExit.From.Type = obj.TYPE_CONST
		movExit.From.Offset = int64(g.exitPC)
		movExit.To.Type = obj.TYPE_REG
		movExit.To.Reg = x86.REG_AX
		l.add(movExit)

		jmpTail := l.newProg()
		jmpTail.As = obj.AJMP
		jmpTail.To.Type = obj.TYPE_BRANCH
		jmpTail.To.SetTarget(tail)
		l.add(jmpTail)
	}

	l.add(tail)
	l.epilogue()
}

// Execute flattens the frame's locals into a dense i32 buffer, invokes
// the trampoline, copies the mutated buffer back, and returns the exit
// PC. The buffer holds maxLocals*2 i32 slots (maxLocals*8 bytes). Each
// local below maxLocals is written to its own slot as a truncated int32;
// the high half of a long/double is not stored. Every slot is copied
// back into the frame as an Int local.
func (c *Compiler) Execute(pc program.PC, f *frame.Frame, maxLocals int) (program.PC, error) {
	nt, ok := c.cache.Lookup(pc)
	if !ok {
		return program.PC{}, fmt.Errorf("jit: no native trace installed at %s", pc)
	}

	locals := make([]int32, maxLocals*2)
	for idx, v := range f.Locals() {
		if int(idx) >= 0 && int(idx) < maxLocals {
			locals[idx] = int32(v.AsInt64())
		}
	}
	exits := make([]int32, maxLocals*2)

	exitPC := jitcall(nt.entry, &locals[0], &exits[0])

	for i, v := range locals {
		f.SetLocal(int32(i), value.OfInt(v))
	}
	next := program.PC{MethodIndex: pc.MethodIndex, InstructionIndex: int(exitPC)}
	f.PC = next
	return next, nil
}
