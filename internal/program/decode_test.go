package program_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/classfile"
	"github.com/clflushopt/coldbrew/internal/program"
	"github.com/clflushopt/coldbrew/internal/value"
)

// classBuilder assembles a minimal single-method class file by hand, in
// the same spirit as classfile's own test helper, but exposing a raw
// constant pool so decode tests can exercise ldc/ldc2w/invokestatic
// constant-pool resolution.
type classBuilder struct {
	buf  bytes.Buffer
	pool bytes.Buffer
	n    uint16 // entries written so far (pool index 1-based)
}

func (c *classBuilder) u2(v uint16) { binary.Write(&c.pool, binary.BigEndian, v) }
func (c *classBuilder) u4(v uint32) { binary.Write(&c.pool, binary.BigEndian, v) }

func (c *classBuilder) utf8(s string) uint16 {
	c.pool.WriteByte(1)
	binary.Write(&c.pool, binary.BigEndian, uint16(len(s)))
	c.pool.WriteString(s)
	c.n++
	return c.n
}

func (c *classBuilder) integer(v int32) uint16 {
	c.pool.WriteByte(3)
	c.u4(uint32(v))
	c.n++
	return c.n
}

func (c *classBuilder) long(v int64) uint16 {
	c.pool.WriteByte(5)
	binary.Write(&c.pool, binary.BigEndian, uint64(v))
	c.n++
	idx := c.n
	c.n++ // dead second slot
	return idx
}

func (c *classBuilder) nameAndType(name, descriptor uint16) uint16 {
	c.pool.WriteByte(12)
	c.u2(name)
	c.u2(descriptor)
	c.n++
	return c.n
}

func (c *classBuilder) methodref(class, nameAndType uint16) uint16 {
	c.pool.WriteByte(10)
	c.u2(class)
	c.u2(nameAndType)
	c.n++
	return c.n
}

// build assembles the full class file, for method "main" with the given
// code bytes and the already-accumulated constant pool.
func (c *classBuilder) build(t *testing.T, code []byte) []byte {
	t.Helper()
	nameIdx := c.utf8("main")
	descIdx := c.utf8("()V")
	codeAttrIdx := c.utf8("Code")

	var out bytes.Buffer
	u2 := func(v uint16) { binary.Write(&out, binary.BigEndian, v) }
	u4 := func(v uint32) { binary.Write(&out, binary.BigEndian, v) }

	u4(classfile.Magic)
	u2(0)
	u2(61)
	u2(c.n + 1) // constant_pool_count
	out.Write(c.pool.Bytes())

	u2(0) // access_flags
	u2(0) // this_class
	u2(0) // super_class
	u2(0) // interfaces_count
	u2(0) // fields_count

	u2(1) // methods_count
	u2(0)
	u2(nameIdx)
	u2(descIdx)
	u2(1) // attributes_count
	u2(codeAttrIdx)

	var codeAttr bytes.Buffer
	binary.Write(&codeAttr, binary.BigEndian, uint16(8)) // max_stack
	binary.Write(&codeAttr, binary.BigEndian, uint16(8)) // max_locals
	binary.Write(&codeAttr, binary.BigEndian, uint32(len(code)))
	codeAttr.Write(code)
	binary.Write(&codeAttr, binary.BigEndian, uint16(0))
	binary.Write(&codeAttr, binary.BigEndian, uint16(0))

	u4(uint32(codeAttr.Len()))
	out.Write(codeAttr.Bytes())

	u2(0) // class attributes_count

	return out.Bytes()
}

func mustProgram(t *testing.T, data []byte) *program.Program {
	t.Helper()
	cf, err := classfile.Parse(data)
	require.NoError(t, err)
	p, err := program.New(cf)
	require.NoError(t, err)
	return p
}

func TestDecodeGotoAppliesBranchBias(t *testing.T) {
	var c classBuilder
	// goto +3 (raw operand bytes 0x00 0x03), biased to 0 so Advance(0)
	// re-enters at the already-advanced instruction index.
	code := []byte{0xa7, 0x00, 0x03}
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, next, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Goto, inst.Op)
	assert.Equal(t, int32(0), inst.IntOperand())
	assert.Equal(t, 3, next.InstructionIndex)
}

func TestDecodeBipushSignExtends(t *testing.T) {
	var c classBuilder
	code := []byte{0x10, 0xff} // bipush -1
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, next, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Bipush, inst.Op)
	assert.Equal(t, int32(-1), inst.IntOperand())
	assert.Equal(t, 2, next.InstructionIndex)
}

func TestDecodeLdcResolvesIntegerConstant(t *testing.T) {
	var c classBuilder
	intIdx := c.integer(42)
	code := []byte{0x12, byte(intIdx)} // ldc
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, _, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Ldc, inst.Op)
	require.Len(t, inst.Operands, 1)
	assert.Equal(t, value.OfInt(42), inst.Operands[0])
}

func TestDecodeLdc2wResolvesLongConstant(t *testing.T) {
	var c classBuilder
	longIdx := c.long(1_000_000_000_000)
	code := []byte{0x14, byte(longIdx >> 8), byte(longIdx)} // ldc2_w
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, _, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Ldc2w, inst.Op)
	require.Len(t, inst.Operands, 1)
	assert.Equal(t, value.OfLong(1_000_000_000_000), inst.Operands[0])
}

func TestDecodeInvokestaticResolvesNameIndex(t *testing.T) {
	var c classBuilder
	calleeName := c.utf8("helper")
	calleeDesc := c.utf8("()V")
	nt := c.nameAndType(calleeName, calleeDesc)
	methodref := c.methodref(1, nt)
	code := []byte{0xb8, byte(methodref >> 8), byte(methodref)} // invokestatic
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, _, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Invokestatic, inst.Op)
	require.Len(t, inst.Operands, 1)
	assert.Equal(t, int32(calleeName), inst.Operands[0].Int)
}

func TestDecodeIincReadsIndexAndSignedDelta(t *testing.T) {
	var c classBuilder
	code := []byte{0x84, 0x01, 0xff} // iinc #1, -1
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, _, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Iinc, inst.Op)
	require.Len(t, inst.Operands, 2)
	assert.Equal(t, int32(1), inst.Operands[0].Int)
	assert.Equal(t, int32(-1), inst.Operands[1].Int)
}

func TestDecodeShortFormHasNoOperands(t *testing.T) {
	var c classBuilder
	code := []byte{0x03} // iconst_0
	data := c.build(t, code)
	p := mustProgram(t, data)

	inst, next, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, bytecode.Iconst0, inst.Op)
	assert.Empty(t, inst.Operands)
	assert.Equal(t, 1, next.InstructionIndex)
}

func TestDecodeOutOfBoundsErrors(t *testing.T) {
	var c classBuilder
	code := []byte{0xb1} // return
	data := c.build(t, code)
	p := mustProgram(t, data)

	_, _, err := p.Decode(program.PC{MethodIndex: 0, InstructionIndex: 5})
	require.Error(t, err)
}
