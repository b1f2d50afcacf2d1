// Package testprograms assembles small, valid class-file byte streams in
// memory and runs them through the real parser (classfile.Parse), the way
// a compiler's bytecode emitter would, rather than hand-poking decoded
// Program structs. Grounded on classfile/parse.go's layout: every
// fixture here is byte-for-byte a class file this engine's own parser
// consumes.
package testprograms

import (
	"encoding/binary"
	"math"

	"github.com/clflushopt/coldbrew/internal/bytecode"
	"github.com/clflushopt/coldbrew/internal/classfile"
	"github.com/clflushopt/coldbrew/internal/program"
)

func u2(v int) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

func u4(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u8(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// builder accumulates constant-pool entries and method bodies for one
// class file.
type builder struct {
	pool      []byte
	poolCount int // next 1-based constant pool index to hand out
	utf8Cache map[string]int
	methods   []methodDef
}

type methodDef struct {
	nameIndex, descIndex int
	maxStack, maxLocals  int
	code                 []byte
}

func newBuilder() *builder {
	return &builder{poolCount: 1, utf8Cache: make(map[string]int)}
}

func (b *builder) addUtf8(s string) int {
	if idx, ok := b.utf8Cache[s]; ok {
		return idx
	}
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagUtf8))
	b.pool = append(b.pool, u2(len(s))...)
	b.pool = append(b.pool, []byte(s)...)
	b.poolCount++
	b.utf8Cache[s] = idx
	return idx
}

func (b *builder) addClass(name string) int {
	nameIdx := b.addUtf8(name)
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagClass))
	b.pool = append(b.pool, u2(nameIdx)...)
	b.poolCount++
	return idx
}

func (b *builder) addNameAndType(name, descriptor string) int {
	nameIdx := b.addUtf8(name)
	descIdx := b.addUtf8(descriptor)
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagNameAndType))
	b.pool = append(b.pool, u2(nameIdx)...)
	b.pool = append(b.pool, u2(descIdx)...)
	b.poolCount++
	return idx
}

func (b *builder) addMethodref(class, name, descriptor string) int {
	classIdx := b.addClass(class)
	ntIdx := b.addNameAndType(name, descriptor)
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagMethodref))
	b.pool = append(b.pool, u2(classIdx)...)
	b.pool = append(b.pool, u2(ntIdx)...)
	b.poolCount++
	return idx
}

func (b *builder) addInteger(v int32) int {
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagInteger))
	b.pool = append(b.pool, u4(uint32(v))...)
	b.poolCount++
	return idx
}

func (b *builder) addFloat(v float32) int {
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagFloat))
	b.pool = append(b.pool, u4(math.Float32bits(v))...)
	b.poolCount++
	return idx
}

func (b *builder) addLong(v int64) int {
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagLong))
	b.pool = append(b.pool, u8(uint64(v))...)
	b.poolCount += 2
	return idx
}

func (b *builder) addDouble(v float64) int {
	idx := b.poolCount
	b.pool = append(b.pool, byte(classfile.TagDouble))
	b.pool = append(b.pool, u8(math.Float64bits(v))...)
	b.poolCount += 2
	return idx
}

// addMethod registers a method with an already-assembled Code body.
func (b *builder) addMethod(name, descriptor string, maxStack, maxLocals int, code []byte) {
	b.methods = append(b.methods, methodDef{
		nameIndex: b.addUtf8(name),
		descIndex: b.addUtf8(descriptor),
		maxStack:  maxStack,
		maxLocals: maxLocals,
		code:      code,
	})
}

// build serializes the accumulated pool and methods into a full class
// file byte stream per classfile/parse.go's expected layout.
func (b *builder) build() []byte {
	codeAttrName := b.addUtf8("Code")
	thisClass := b.addClass("Test")
	superClass := b.addClass("java/lang/Object")

	out := make([]byte, 0, 256)
	out = append(out, u4(classfile.Magic)...)
	out = append(out, u2(0)...) // minor
	out = append(out, u2(52)...) // major
	out = append(out, u2(b.poolCount)...)
	out = append(out, b.pool...)
	out = append(out, u2(0x0021)...) // access flags: ACC_PUBLIC | ACC_SUPER
	out = append(out, u2(thisClass)...)
	out = append(out, u2(superClass)...)
	out = append(out, u2(0)...) // interfaces
	out = append(out, u2(0)...) // fields

	out = append(out, u2(len(b.methods))...)
	for _, m := range b.methods {
		out = append(out, u2(0x0009)...) // ACC_PUBLIC | ACC_STATIC
		out = append(out, u2(m.nameIndex)...)
		out = append(out, u2(m.descIndex)...)
		out = append(out, u2(1)...) // attributes: Code only

		codeAttr := make([]byte, 0, len(m.code)+16)
		codeAttr = append(codeAttr, u2(m.maxStack)...)
		codeAttr = append(codeAttr, u2(m.maxLocals)...)
		codeAttr = append(codeAttr, u4(uint32(len(m.code)))...)
		codeAttr = append(codeAttr, m.code...)
		codeAttr = append(codeAttr, u2(0)...) // exception table
		codeAttr = append(codeAttr, u2(0)...) // code attributes

		out = append(out, u2(codeAttrName)...)
		out = append(out, u4(uint32(len(codeAttr)))...)
		out = append(out, codeAttr...)
	}

	out = append(out, u2(0)...) // class attributes
	return out
}

// program runs the class file through the real parser and the Program
// constructor, returning a ready-to-execute program.
func (b *builder) program() (*program.Program, error) {
	cf, err := classfile.Parse(b.build())
	if err != nil {
		return nil, err
	}
	return program.New(cf)
}

// code is a small bytecode assembler: emit in source order, patch
// forward branch targets once they're known.
type code struct {
	buf []byte
}

func (c *code) here() int { return len(c.buf) }

func (c *code) op(o bytecode.Opcode) *code {
	c.buf = append(c.buf, byte(o))
	return c
}

// opIndex emits a one-byte-operand opcode: long-form iload/istore/ldc/
// bipush local-index or pool-index forms.
func (c *code) opIndex(o bytecode.Opcode, idx int) *code {
	c.buf = append(c.buf, byte(o), byte(idx))
	return c
}

func (c *code) sipush(v int16) *code {
	c.buf = append(c.buf, byte(bytecode.Sipush), byte(uint16(v)>>8), byte(uint16(v)))
	return c
}

func (c *code) iinc(idx int, delta int8) *code {
	c.buf = append(c.buf, byte(bytecode.Iinc), byte(idx), byte(delta))
	return c
}

// invokestatic emits a call to a Methodref constant-pool entry.
func (c *code) invokestatic(methodrefIndex int) *code {
	c.buf = append(c.buf, byte(bytecode.Invokestatic), byte(methodrefIndex>>8), byte(methodrefIndex))
	return c
}

// branchPatch is a forward branch whose target is filled in once known.
type branchPatch struct {
	c   *code
	pos int
}

func (c *code) branch(o bytecode.Opcode) *branchPatch {
	pos := c.here()
	c.buf = append(c.buf, byte(o), 0, 0)
	return &branchPatch{c: c, pos: pos}
}

func (p *branchPatch) resolveHere() {
	p.resolveTo(p.c.here())
}

func (p *branchPatch) resolveTo(target int) {
	offset := int16(target - p.pos)
	p.c.buf[p.pos+1] = byte(uint16(offset) >> 8)
	p.c.buf[p.pos+2] = byte(uint16(offset))
}

// branchTo emits a branch whose target is already known (a backward
// jump to an earlier label).
func (c *code) branchTo(o bytecode.Opcode, target int) *code {
	pos := c.here()
	offset := int16(target - pos)
	c.buf = append(c.buf, byte(o), byte(uint16(offset)>>8), byte(uint16(offset)))
	return c
}
