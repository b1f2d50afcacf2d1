package classfile

import (
	"fmt"
	"strings"

	"github.com/clflushopt/coldbrew/internal/value"
)

// FieldType is one decoded element of a method descriptor: a primitive
// kind, void, or a reference/array type (both treated as opaque, 1-slot
// strings, since object allocation is out of scope for this engine).
type FieldType struct {
	Kind    value.Kind
	IsVoid  bool
	IsRef   bool // reference or array type, carried as an opaque descriptor
	Literal string
}

// Slots returns how many local-variable slots this type occupies.
func (f FieldType) Slots() int {
	if f.IsVoid {
		return 0
	}
	if f.IsRef {
		return 1
	}
	return f.Kind.Slots()
}

// MethodDescriptor is the parsed form of the JVM's "(<arg>*)<ret>"
// method descriptor grammar.
type MethodDescriptor struct {
	Args   []FieldType
	Return FieldType
}

// ArgSlots returns the total local-variable slot count the arguments
// occupy, long/double counting twice.
func (d MethodDescriptor) ArgSlots() int {
	n := 0
	for _, a := range d.Args {
		n += a.Slots()
	}
	return n
}

// ParseMethodDescriptor parses "(<arg>*)<ret>": I=int, J=long, F=float,
// D=double, V=void, L<classname>;=reference, [<type>=array (length = 1
// + element's encoded length).
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, fmt.Errorf("classfile: descriptor %q missing opening paren", s)
	}
	i := 1
	var args []FieldType
	for i < len(s) && s[i] != ')' {
		ft, n, err := parseFieldType(s[i:])
		if err != nil {
			return MethodDescriptor{}, err
		}
		args = append(args, ft)
		i += n
	}
	if i >= len(s) {
		return MethodDescriptor{}, fmt.Errorf("classfile: descriptor %q missing closing paren", s)
	}
	i++ // skip ')'
	ret, n, err := parseFieldType(s[i:])
	if err != nil {
		return MethodDescriptor{}, err
	}
	if i+n != len(s) {
		return MethodDescriptor{}, fmt.Errorf("classfile: descriptor %q has trailing garbage", s)
	}
	return MethodDescriptor{Args: args, Return: ret}, nil
}

// parseFieldType parses one type starting at s[0] and returns the
// decoded type plus how many bytes of s it consumed.
func parseFieldType(s string) (FieldType, int, error) {
	if len(s) == 0 {
		return FieldType{}, 0, fmt.Errorf("classfile: empty field type")
	}
	switch s[0] {
	case 'I':
		return FieldType{Kind: value.Int}, 1, nil
	case 'J':
		return FieldType{Kind: value.Long}, 1, nil
	case 'F':
		return FieldType{Kind: value.Float}, 1, nil
	case 'D':
		return FieldType{Kind: value.Double}, 1, nil
	case 'V':
		return FieldType{IsVoid: true}, 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return FieldType{}, 0, fmt.Errorf("classfile: unterminated reference type in %q", s)
		}
		return FieldType{IsRef: true, Literal: s[:end+1]}, end + 1, nil
	case '[':
		_, n, err := parseFieldType(s[1:])
		if err != nil {
			return FieldType{}, 0, err
		}
		return FieldType{IsRef: true, Literal: s[:1+n]}, 1 + n, nil
	default:
		return FieldType{}, 0, fmt.Errorf("classfile: unknown field type byte %q", s[0])
	}
}
