// Package value implements the tagged-union runtime value the interpreter
// and JIT exchange: a 32-bit int, a 64-bit long, a 32-bit float, or a
// 64-bit double, plus the arithmetic, comparison, and conversion rules
// the JVM's typed opcode families require.
package value

import (
	"fmt"
	"math"
)

// Kind tags which of the four primitives a Value currently holds.
type Kind byte

const (
	Int Kind = iota
	Long
	Float
	Double
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "?kind?"
	}
}

// Slots returns how many local-variable slots a value of this kind
// occupies: long and double take two, everything else takes one.
func (k Kind) Slots() int {
	if k == Long || k == Double {
		return 2
	}
	return 1
}

// Value is a small tagged union. Only the field matching Kind is
// meaningful; the others are zero.
type Value struct {
	Kind   Kind
	Int    int32
	Long   int64
	Float  float32
	Double float64
}

func OfInt(v int32) Value { return Value{Kind: Int, Int: v} }

func OfLong(v int64) Value { return Value{Kind: Long, Long: v} }

func OfFloat(v float32) Value { return Value{Kind: Float, Float: v} }

func OfDouble(v float64) Value { return Value{Kind: Double, Double: v} }

func (v Value) String() string {
	switch v.Kind {
	case Int:
		return fmt.Sprintf("int(%d)", v.Int)
	case Long:
		return fmt.Sprintf("long(%d)", v.Long)
	case Float:
		return fmt.Sprintf("float(%g)", v.Float)
	case Double:
		return fmt.Sprintf("double(%g)", v.Double)
	default:
		return "invalid"
	}
}

// AsInt64 widens any numeric kind to an int64 for total conversions.
func (v Value) AsInt64() int64 {
	switch v.Kind {
	case Int:
		return int64(v.Int)
	case Long:
		return v.Long
	case Float:
		return int64(v.Float)
	case Double:
		return int64(v.Double)
	default:
		return 0
	}
}

// AsFloat64 widens any numeric kind to a float64 for total conversions.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case Int:
		return float64(v.Int)
	case Long:
		return float64(v.Long)
	case Float:
		return float64(v.Float)
	case Double:
		return v.Double
	default:
		return 0
	}
}

// ConvertTo performs a total conversion from v's kind to target, mirroring
// the JVM's i2l/i2f/i2d/l2i/... opcode family.
func (v Value) ConvertTo(target Kind) Value {
	switch target {
	case Int:
		return OfInt(int32(v.AsInt64()))
	case Long:
		return OfLong(v.AsInt64())
	case Float:
		return OfFloat(float32(v.AsFloat64()))
	case Double:
		return OfDouble(v.AsFloat64())
	default:
		return v
	}
}

// ErrDivideByZero is a fatal runtime fault.
var ErrDivideByZero = fmt.Errorf("division by zero")

// ErrKindMismatch indicates an arithmetic op received operands of
// mismatched or unsupported kinds.
type ErrKindMismatch struct {
	Op   string
	X, Y Kind
}

func (e *ErrKindMismatch) Error() string {
	return fmt.Sprintf("value: %s: mismatched kinds %s/%s", e.Op, e.X, e.Y)
}

// Add adds x and y. Integer add wraps on overflow; other kinds use
// native Go wraparound/IEEE-754 semantics.
func Add(x, y Value) (Value, error) {
	if x.Kind != y.Kind {
		return Value{}, &ErrKindMismatch{"add", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		return OfInt(int32(uint32(x.Int) + uint32(y.Int))), nil
	case Long:
		return OfLong(int64(uint64(x.Long) + uint64(y.Long))), nil
	case Float:
		return OfFloat(x.Float + y.Float), nil
	case Double:
		return OfDouble(x.Double + y.Double), nil
	default:
		return Value{}, &ErrKindMismatch{"add", x.Kind, y.Kind}
	}
}

func Sub(x, y Value) (Value, error) {
	if x.Kind != y.Kind {
		return Value{}, &ErrKindMismatch{"sub", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		return OfInt(x.Int - y.Int), nil
	case Long:
		return OfLong(x.Long - y.Long), nil
	case Float:
		return OfFloat(x.Float - y.Float), nil
	case Double:
		return OfDouble(x.Double - y.Double), nil
	default:
		return Value{}, &ErrKindMismatch{"sub", x.Kind, y.Kind}
	}
}

func Mul(x, y Value) (Value, error) {
	if x.Kind != y.Kind {
		return Value{}, &ErrKindMismatch{"mul", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		return OfInt(x.Int * y.Int), nil
	case Long:
		return OfLong(x.Long * y.Long), nil
	case Float:
		return OfFloat(x.Float * y.Float), nil
	case Double:
		return OfDouble(x.Double * y.Double), nil
	default:
		return Value{}, &ErrKindMismatch{"mul", x.Kind, y.Kind}
	}
}

func Div(x, y Value) (Value, error) {
	if x.Kind != y.Kind {
		return Value{}, &ErrKindMismatch{"div", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		if y.Int == 0 {
			return Value{}, ErrDivideByZero
		}
		return OfInt(x.Int / y.Int), nil
	case Long:
		if y.Long == 0 {
			return Value{}, ErrDivideByZero
		}
		return OfLong(x.Long / y.Long), nil
	case Float:
		return OfFloat(x.Float / y.Float), nil
	case Double:
		return OfDouble(x.Double / y.Double), nil
	default:
		return Value{}, &ErrKindMismatch{"div", x.Kind, y.Kind}
	}
}

func Rem(x, y Value) (Value, error) {
	if x.Kind != y.Kind {
		return Value{}, &ErrKindMismatch{"rem", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		if y.Int == 0 {
			return Value{}, ErrDivideByZero
		}
		return OfInt(x.Int % y.Int), nil
	case Long:
		if y.Long == 0 {
			return Value{}, ErrDivideByZero
		}
		return OfLong(x.Long % y.Long), nil
	case Float:
		return OfFloat(float32(math.Mod(float64(x.Float), float64(y.Float)))), nil
	case Double:
		return OfDouble(math.Mod(x.Double, y.Double)), nil
	default:
		return Value{}, &ErrKindMismatch{"rem", x.Kind, y.Kind}
	}
}

// Compare returns -1, 0, or 1 and is a total order on values sharing a
// kind.
func Compare(x, y Value) (int, error) {
	if x.Kind != y.Kind {
		return 0, &ErrKindMismatch{"cmp", x.Kind, y.Kind}
	}
	switch x.Kind {
	case Int:
		return cmpOrdered(x.Int, y.Int), nil
	case Long:
		return cmpOrdered(x.Long, y.Long), nil
	case Float:
		return cmpOrdered(x.Float, y.Float), nil
	case Double:
		return cmpOrdered(x.Double, y.Double), nil
	default:
		return 0, &ErrKindMismatch{"cmp", x.Kind, y.Kind}
	}
}

func cmpOrdered[T int32 | int64 | float32 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
