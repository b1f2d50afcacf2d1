package classfile

import "fmt"

// ConstantTag identifies the kind of a constant-pool entry. Only the
// subset this engine needs is modeled; anything else the parser meets
// is read (so the pool stays correctly indexed) but not exposed.
type ConstantTag byte

const (
	TagUtf8              ConstantTag = 1
	TagInteger           ConstantTag = 3
	TagFloat             ConstantTag = 4
	TagLong              ConstantTag = 5
	TagDouble            ConstantTag = 6
	TagClass             ConstantTag = 7
	TagString            ConstantTag = 8
	TagFieldref          ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagInvokeDynamic      ConstantTag = 18
)

// Constant is one entry in the constant pool. Only the fields relevant
// to its Tag are populated.
type Constant struct {
	Tag ConstantTag

	// TagUtf8
	Utf8 string

	// TagInteger / TagFloat / TagLong / TagDouble
	Int    int32
	Long   int64
	Float  float32
	Double float64

	// TagClass / TagString: index into the pool of a Utf8 entry.
	NameIndex int

	// TagFieldref / TagMethodref / TagInterfaceMethodref
	ClassIndex       int
	NameAndTypeIndex int

	// TagNameAndType
	DescriptorIndex int
}

// ConstantPool is the 1-indexed, heterogeneous constant table a parsed
// class file carries. Index 0 is unused (matches the class-file format's
// 1-based indexing); long/double entries occupy two slots, the second of
// which is left zero-valued, a JVM class-file quirk.
type ConstantPool struct {
	entries []Constant
}

func newConstantPool(count int) *ConstantPool {
	return &ConstantPool{entries: make([]Constant, count)}
}

func (p *ConstantPool) set(index int, c Constant) {
	p.entries[index] = c
}

// Len returns the number of pool slots (including the unused index 0
// and the dead second slot after each long/double).
func (p *ConstantPool) Len() int { return len(p.entries) }

func (p *ConstantPool) at(index int) (Constant, error) {
	if index <= 0 || index >= len(p.entries) {
		return Constant{}, fmt.Errorf("classfile: constant pool index %d out of range", index)
	}
	return p.entries[index], nil
}

// Utf8At resolves index to its string payload.
func (p *ConstantPool) Utf8At(index int) (string, error) {
	c, err := p.at(index)
	if err != nil {
		return "", err
	}
	if c.Tag != TagUtf8 {
		return "", fmt.Errorf("classfile: constant %d is not Utf8 (tag=%d)", index, c.Tag)
	}
	return c.Utf8, nil
}

// NameAndType resolves a NameAndType entry to its (name, descriptor)
// string pair.
func (p *ConstantPool) NameAndType(index int) (name, descriptor string, err error) {
	c, err := p.at(index)
	if err != nil {
		return "", "", err
	}
	if c.Tag != TagNameAndType {
		return "", "", fmt.Errorf("classfile: constant %d is not NameAndType (tag=%d)", index, c.Tag)
	}
	name, err = p.Utf8At(c.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.Utf8At(c.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MethodName walks MethodRef -> NameAndType -> Utf8 and returns the
// callee's method name, the resolution invokestatic decode needs.
func (p *ConstantPool) MethodName(methodrefIndex int) (string, error) {
	c, err := p.at(methodrefIndex)
	if err != nil {
		return "", err
	}
	if c.Tag != TagMethodref {
		return "", fmt.Errorf("classfile: constant %d is not Methodref (tag=%d)", methodrefIndex, c.Tag)
	}
	name, _, err := p.NameAndType(c.NameAndTypeIndex)
	return name, err
}

// MethodNameIndex walks MethodRef -> NameAndType and returns the
// name_index of the callee, which Program keys its method table by
// (decode.go resolves invokestatic operands to this, not to the raw
// Methodref index, so MethodIndexByName can find the target method).
func (p *ConstantPool) MethodNameIndex(methodrefIndex int) (int, error) {
	c, err := p.at(methodrefIndex)
	if err != nil {
		return 0, err
	}
	if c.Tag != TagMethodref {
		return 0, fmt.Errorf("classfile: constant %d is not Methodref (tag=%d)", methodrefIndex, c.Tag)
	}
	nt, err := p.at(c.NameAndTypeIndex)
	if err != nil {
		return 0, err
	}
	if nt.Tag != TagNameAndType {
		return 0, fmt.Errorf("classfile: constant %d is not NameAndType (tag=%d)", c.NameAndTypeIndex, nt.Tag)
	}
	return nt.NameIndex, nil
}

// IntegerAt, FloatAt, LongAt, DoubleAt resolve ldc/ldc2w primitive
// constants.
func (p *ConstantPool) IntegerAt(index int) (int32, error) {
	c, err := p.at(index)
	if err != nil {
		return 0, err
	}
	if c.Tag != TagInteger {
		return 0, fmt.Errorf("classfile: constant %d is not Integer (tag=%d)", index, c.Tag)
	}
	return c.Int, nil
}

func (p *ConstantPool) FloatAt(index int) (float32, error) {
	c, err := p.at(index)
	if err != nil {
		return 0, err
	}
	if c.Tag != TagFloat {
		return 0, fmt.Errorf("classfile: constant %d is not Float (tag=%d)", index, c.Tag)
	}
	return c.Float, nil
}

func (p *ConstantPool) LongAt(index int) (int64, error) {
	c, err := p.at(index)
	if err != nil {
		return 0, err
	}
	if c.Tag != TagLong {
		return 0, fmt.Errorf("classfile: constant %d is not Long (tag=%d)", index, c.Tag)
	}
	return c.Long, nil
}

func (p *ConstantPool) DoubleAt(index int) (float64, error) {
	c, err := p.at(index)
	if err != nil {
		return 0, err
	}
	if c.Tag != TagDouble {
		return 0, fmt.Errorf("classfile: constant %d is not Double (tag=%d)", index, c.Tag)
	}
	return c.Double, nil
}
