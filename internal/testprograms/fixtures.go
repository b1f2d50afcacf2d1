package testprograms

import (
	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/program"
)

// CompareEq returns a program whose main() pushes two equal ints,
// compares them with if_icmpeq, and returns 1 on equality, 0 otherwise
// (expected top return Int(1)).
func CompareEq() (*program.Program, error) {
	b := newBuilder()

	c := &code{}
	c.opIndex(bytecode.Bipush, 5)
	c.opIndex(bytecode.Bipush, 5)
	eq := c.branch(bytecode.IfIcmpeq)
	c.op(bytecode.Iconst0)
	c.op(bytecode.Ireturn)
	eq.resolveHere()
	c.op(bytecode.Iconst1)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 2, 0, c.buf)
	return b.program()
}

// SumLoop returns a program computing s = sum(1..1000) with a
// javac-shaped for-loop: a forward conditional exit guarding a backward
// unconditional goto back to the loop header (expected Int(500500)).
func SumLoop() (*program.Program, error) {
	b := newBuilder()

	// locals: 0 = s, 1 = i
	c := &code{}
	c.op(bytecode.Iconst0)
	c.op(bytecode.Istore0) // s = 0
	c.op(bytecode.Iconst1)
	c.op(bytecode.Istore1) // i = 1

	header := c.here()
	c.op(bytecode.Iload1)
	c.sipush(1000)
	exit := c.branch(bytecode.IfIcmpgt) // if i > 1000, exit
	c.op(bytecode.Iload0)
	c.op(bytecode.Iload1)
	c.op(bytecode.Iadd)
	c.op(bytecode.Istore0) // s += i
	c.iinc(1, 1)           // i++
	c.branchTo(bytecode.Goto, header)
	exit.resolveHere()
	c.op(bytecode.Iload0)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 3, 2, c.buf)
	return b.program()
}

// Factorial returns a program computing 5! by accumulation, counting i
// down from 5 to 1 (expected Int(120)).
func Factorial() (*program.Program, error) {
	b := newBuilder()

	// locals: 0 = acc, 1 = i
	c := &code{}
	c.op(bytecode.Iconst1)
	c.op(bytecode.Istore0) // acc = 1
	c.opIndex(bytecode.Bipush, 5)
	c.op(bytecode.Istore1) // i = 5

	header := c.here()
	c.op(bytecode.Iload1)
	exit := c.branch(bytecode.Ifle) // if i <= 0, exit
	c.op(bytecode.Iload0)
	c.op(bytecode.Iload1)
	c.op(bytecode.Imul)
	c.op(bytecode.Istore0) // acc *= i
	c.iinc(1, -1)          // i--
	c.branchTo(bytecode.Goto, header)
	exit.resolveHere()
	c.op(bytecode.Iload0)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 2, 2, c.buf)
	return b.program()
}

// HotLoopKernel returns a program summing 1..10, shaped identically to
// SumLoop. Ten iterations are enough for the loop header to pass the
// default hotness threshold, so with the JIT enabled the later
// iterations run through a compiled trace, and the result must match
// the interpreter-only run (expected Int(55)).
func HotLoopKernel() (*program.Program, error) {
	b := newBuilder()

	c := &code{}
	c.op(bytecode.Iconst0)
	c.op(bytecode.Istore0) // s = 0
	c.op(bytecode.Iconst1)
	c.op(bytecode.Istore1) // i = 1

	header := c.here()
	c.op(bytecode.Iload1)
	c.opIndex(bytecode.Bipush, 10)
	exit := c.branch(bytecode.IfIcmpgt)
	c.op(bytecode.Iload0)
	c.op(bytecode.Iload1)
	c.op(bytecode.Iadd)
	c.op(bytecode.Istore0)
	c.iinc(1, 1)
	c.branchTo(bytecode.Goto, header)
	exit.resolveHere()
	c.op(bytecode.Iload0)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 3, 2, c.buf)
	return b.program()
}

// Remainder returns a program computing 17 % 5 (expected Int(2)).
func Remainder() (*program.Program, error) {
	b := newBuilder()

	c := &code{}
	c.opIndex(bytecode.Bipush, 17)
	c.opIndex(bytecode.Bipush, 5)
	c.op(bytecode.Irem)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 2, 0, c.buf)
	return b.program()
}

// StaticCallInLoop returns a program with a helper add(a, b) method
// invoked from main's loop body a hundred times (a=1, b=4, n=100
// iterations, expected Int(500) — main accumulates add(a,b) into s
// each iteration, i.e. s += 5 a hundred times).
func StaticCallInLoop() (*program.Program, error) {
	b := newBuilder()

	addCode := &code{}
	addCode.op(bytecode.Iload0)
	addCode.op(bytecode.Iload1)
	addCode.op(bytecode.Iadd)
	addCode.op(bytecode.Ireturn)
	b.addMethod("add", "(II)I", 2, 2, addCode.buf)

	addRef := b.addMethodref("Test", "add", "(II)I")

	// main locals: 0 = s, 1 = i, 2 = a, 3 = b
	c := &code{}
	c.op(bytecode.Iconst0)
	c.op(bytecode.Istore0) // s = 0
	c.op(bytecode.Iconst0)
	c.op(bytecode.Istore1) // i = 0
	c.op(bytecode.Iconst1)
	c.opIndex(bytecode.Istore, 2) // a = 1
	c.opIndex(bytecode.Bipush, 4)
	c.opIndex(bytecode.Istore, 3) // b = 4

	header := c.here()
	c.op(bytecode.Iload1)
	c.opIndex(bytecode.Bipush, 100)
	exit := c.branch(bytecode.IfIcmpge) // if i >= 100, exit
	c.op(bytecode.Iload0)
	c.opIndex(bytecode.Iload, 2)
	c.opIndex(bytecode.Iload, 3)
	c.invokestatic(addRef)
	c.op(bytecode.Iadd)
	c.op(bytecode.Istore0) // s += add(a, b)
	c.iinc(1, 1)           // i++
	c.branchTo(bytecode.Goto, header)
	exit.resolveHere()
	c.op(bytecode.Iload0)
	c.op(bytecode.Ireturn)

	b.addMethod("main", "()I", 3, 4, c.buf)
	return b.program()
}
