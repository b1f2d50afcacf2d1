package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// reader is a small big-endian cursor over the class-file byte stream,
// in the spirit of the teacher's bufio-backed line reader (gvm
// vm/vm.go NewVirtualMachine) but for binary rather than text input.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) u1() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u2() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u8() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int) error {
	if r.pos+n > len(r.buf) {
		return io.ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

// Parse decodes a class file: magic, minor/major version, constant
// pool, access flags, this/super, interfaces, fields, methods, class
// attributes. The binary class-file parser is logically an external
// collaborator — out of scope for the tracing-JIT core itself —
// implemented here so the rest of the engine has a real program to run.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{buf: data}

	magic, err := r.u4()
	if err != nil {
		return nil, fmt.Errorf("classfile: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("classfile: bad magic %#x", magic)
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = r.u2(); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = r.u2(); err != nil {
		return nil, err
	}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if cf.AccessFlags, err = r.u2(); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = r.u2(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = r.u2(); err != nil {
		return nil, err
	}

	ifaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	if err := r.skip(int(ifaceCount) * 2); err != nil {
		return nil, fmt.Errorf("classfile: interfaces: %w", err)
	}

	if err := skipFieldsOrMethods(r, true /* skip = fields */); err != nil {
		return nil, fmt.Errorf("classfile: fields: %w", err)
	}

	methods, err := parseMethods(r, pool)
	if err != nil {
		return nil, fmt.Errorf("classfile: methods: %w", err)
	}
	cf.Methods = methods

	attrCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := skipAttribute(r); err != nil {
			return nil, fmt.Errorf("classfile: class attributes: %w", err)
		}
	}

	return cf, nil
}

func parseConstantPool(r *reader) (*ConstantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	pool := newConstantPool(int(count))
	// Index 0 is unused; long/double occupy two slots.
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		c := Constant{Tag: ConstantTag(tag)}
		switch c.Tag {
		case TagUtf8:
			length, err := r.u2()
			if err != nil {
				return nil, err
			}
			raw, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			c.Utf8 = decodeModifiedUTF8(raw)
		case TagInteger:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.Int = int32(v)
		case TagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			c.Float = math.Float32frombits(v)
		case TagLong:
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			c.Long = int64(v)
		case TagDouble:
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			c.Double = math.Float64frombits(v)
		case TagClass, TagString, TagMethodType:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			c.NameIndex = int(idx)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			ci, err := r.u2()
			if err != nil {
				return nil, err
			}
			nti, err := r.u2()
			if err != nil {
				return nil, err
			}
			c.ClassIndex = int(ci)
			c.NameAndTypeIndex = int(nti)
		case TagNameAndType:
			ni, err := r.u2()
			if err != nil {
				return nil, err
			}
			di, err := r.u2()
			if err != nil {
				return nil, err
			}
			c.NameIndex = int(ni)
			c.DescriptorIndex = int(di)
		case TagMethodHandle:
			if err := r.skip(3); err != nil {
				return nil, err
			}
		case TagInvokeDynamic:
			if err := r.skip(4); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("classfile: unknown constant tag %d at index %d", tag, i)
		}
		pool.set(i, c)

		if c.Tag == TagLong || c.Tag == TagDouble {
			// Long/Double constants occupy the next index too; leave it
			// zero-valued and skip over it, per the class-file format.
			i++
		}
	}
	return pool, nil
}

// skipFieldsOrMethods consumes a field_info table (attributes skipped by
// length; this core has no field semantics). Methods are parsed for
// real by parseMethods below.
func skipFieldsOrMethods(r *reader, fields bool) error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(6); err != nil { // access_flags, name_index, descriptor_index
			return err
		}
		attrCount, err := r.u2()
		if err != nil {
			return err
		}
		for j := 0; j < int(attrCount); j++ {
			if err := skipAttribute(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseMethods(r *reader, pool *ConstantPool) ([]Method, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]Method, 0, count)
	for i := 0; i < int(count); i++ {
		if err := r.skip(2); err != nil { // access_flags
			return nil, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8At(int(nameIdx))
		if err != nil {
			return nil, err
		}
		descStr, err := pool.Utf8At(int(descIdx))
		if err != nil {
			return nil, err
		}
		desc, err := ParseMethodDescriptor(descStr)
		if err != nil {
			return nil, err
		}

		m := Method{
			NameIndex:       int(nameIdx),
			Name:            name,
			DescriptorIndex: int(descIdx),
			Descriptor:      desc,
		}

		attrCount, err := r.u2()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(attrCount); j++ {
			nameIdx, length, body, err := readAttributeHeader(r)
			if err != nil {
				return nil, err
			}
			attrName, err := pool.Utf8At(int(nameIdx))
			if err != nil {
				return nil, err
			}
			if attrName == "Code" {
				code, maxStack, maxLocals, exTable, err := parseCodeAttribute(body)
				if err != nil {
					return nil, err
				}
				m.Code = code
				m.MaxStack = maxStack
				m.MaxLocals = maxLocals
				m.ExceptionTable = exTable
			}
			_ = length
		}

		methods = append(methods, m)
	}
	return methods, nil
}

// readAttributeHeader reads an attribute_info's name index and
// length-prefixed body in one shot, so callers can either interpret it
// (Code) or discard it (everything else, by length).
func readAttributeHeader(r *reader) (nameIndex int, length int, body []byte, err error) {
	ni, err := r.u2()
	if err != nil {
		return 0, 0, nil, err
	}
	l, err := r.u4()
	if err != nil {
		return 0, 0, nil, err
	}
	b, err := r.bytes(int(l))
	if err != nil {
		return 0, 0, nil, err
	}
	return int(ni), int(l), b, nil
}

// skipAttribute discards one attribute_info regardless of kind.
// ConstantValue, StackMapTable, SourceFile, BootstrapMethods, NestHost,
// and NestMembers are all recognized by name but carry no core
// semantics, so they are skipped by length exactly like any
// unrecognized attribute.
func skipAttribute(r *reader) error {
	_, _, _, err := readAttributeHeader(r)
	return err
}

// parseCodeAttribute decodes a Code attribute body: max_stack,
// max_locals, code_length, code, exception table, and nested attributes
// (skipped by length — StackMapTable is one, but this core never
// consults it).
func parseCodeAttribute(body []byte) (code []byte, maxStack, maxLocals int, exTable []ExceptionTableEntry, err error) {
	r := &reader{buf: body}
	ms, err := r.u2()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	ml, err := r.u2()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	codeLen, err := r.u4()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	c, err := r.bytes(int(codeLen))
	if err != nil {
		return nil, 0, 0, nil, err
	}
	codeCopy := make([]byte, len(c))
	copy(codeCopy, c)

	exCount, err := r.u2()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	table := make([]ExceptionTableEntry, 0, exCount)
	for i := 0; i < int(exCount); i++ {
		start, err := r.u2()
		if err != nil {
			return nil, 0, 0, nil, err
		}
		end, err := r.u2()
		if err != nil {
			return nil, 0, 0, nil, err
		}
		handler, err := r.u2()
		if err != nil {
			return nil, 0, 0, nil, err
		}
		catch, err := r.u2()
		if err != nil {
			return nil, 0, 0, nil, err
		}
		table = append(table, ExceptionTableEntry{start, end, handler, catch})
	}

	attrCount, err := r.u2()
	if err != nil {
		return nil, 0, 0, nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := skipAttribute(r); err != nil {
			return nil, 0, 0, nil, err
		}
	}

	return codeCopy, int(ms), int(ml), table, nil
}

// decodeModifiedUTF8 treats the payload as plain UTF-8; this core only
// ever reads method/attribute names and has no need for the CESU-8
// surrogate-pair encoding modified UTF-8 uses for astral characters.
func decodeModifiedUTF8(raw []byte) string {
	return string(raw)
}
