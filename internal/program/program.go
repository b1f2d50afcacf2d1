package program

import (
	"fmt"

	"github.com/clflushopt/coldbrew/internal/classfile"
	"github.com/clflushopt/coldbrew/internal/value"
)

// Method is the per-method view the interpreter and JIT need:
// max-stack, max-locals, decoded argument types, a return type, and the
// raw bytecode. Long and double each occupy two local slots.
type Method struct {
	NameIndex int
	Name      string
	ArgTypes  []value.Kind
	ArgIsRef  []bool
	Return    value.Kind
	ReturnIsVoid bool
	MaxStack  int
	MaxLocals int
	Code      []byte
}

// ArgSlots returns the number of local-variable slots the arguments
// occupy (long/double counting twice).
func (m Method) ArgSlots() int {
	n := 0
	for _, k := range m.ArgTypes {
		n += k.Slots()
	}
	return n
}

// Program is the immutable, read-only view over a parsed class file. It
// exposes the constant pool, a mapping from method-name-index to method
// record, entry_point(), and code().
type Program struct {
	cf       *classfile.ClassFile
	methods  []Method
	byName   map[int]int // name index -> method slot
}

// New builds a Program from a parsed ClassFile.
func New(cf *classfile.ClassFile) (*Program, error) {
	p := &Program{cf: cf, byName: make(map[int]int, len(cf.Methods))}
	for i, m := range cf.Methods {
		argTypes := make([]value.Kind, len(m.Descriptor.Args))
		argIsRef := make([]bool, len(m.Descriptor.Args))
		for j, a := range m.Descriptor.Args {
			argTypes[j] = a.Kind
			argIsRef[j] = a.IsRef
		}
		p.methods = append(p.methods, Method{
			NameIndex:    m.NameIndex,
			Name:         m.Name,
			ArgTypes:     argTypes,
			ArgIsRef:     argIsRef,
			Return:       m.Descriptor.Return.Kind,
			ReturnIsVoid: m.Descriptor.Return.IsVoid,
			MaxStack:     m.MaxStack,
			MaxLocals:    m.MaxLocals,
			Code:         m.Code,
		})
		p.byName[m.NameIndex] = i
	}
	return p, nil
}

// ConstantPool exposes the underlying class file's constant pool, for
// invokestatic/ldc resolution during decode.
func (p *Program) ConstantPool() *classfile.ConstantPool { return p.cf.ConstantPool }

// EntryPoint returns the name-index of the method named "main".
func (p *Program) EntryPoint() (int, error) {
	idx := p.cf.MethodByName("main")
	if idx < 0 {
		return 0, fmt.Errorf("program: no method named \"main\"")
	}
	return p.methods[idx].NameIndex, nil
}

// MethodIndexByName resolves a method name-index (as carried by
// Instruction operands from invokestatic) to its slot in Methods.
func (p *Program) MethodIndexByName(nameIndex int) (int, error) {
	idx, ok := p.byName[nameIndex]
	if !ok {
		return 0, fmt.Errorf("program: no method with name index %d", nameIndex)
	}
	return idx, nil
}

// Method returns the method record at the given slot index.
func (p *Program) Method(methodIndex int) (Method, error) {
	if methodIndex < 0 || methodIndex >= len(p.methods) {
		return Method{}, fmt.Errorf("program: method index %d out of range", methodIndex)
	}
	return p.methods[methodIndex], nil
}

// Code returns the raw bytecode slice for a method.
func (p *Program) Code(methodIndex int) ([]byte, error) {
	m, err := p.Method(methodIndex)
	if err != nil {
		return nil, err
	}
	return m.Code, nil
}
