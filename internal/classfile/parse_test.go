package classfile_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/classfile"
)

// buildMinimalClass assembles a hand-rolled class file with a single
// method "main" of descriptor "()V" whose Code attribute is just the
// given bytecode. This stands in for a real compiler's output (the
// class-file compiler is an external collaborator this engine doesn't
// implement); it mirrors the real byte layout closely enough to
// exercise the parser.
func buildMinimalClass(t *testing.T, code []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	u2 := func(v uint16) { binary.Write(&buf, binary.BigEndian, v) }
	u4 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }
	utf8 := func(s string) {
		u2(uint16(len(s)))
		buf.WriteString(s)
	}

	u4(classfile.Magic)
	u2(0)  // minor
	u2(61) // major

	// Constant pool: indices 1..5
	//   1: Utf8 "main"
	//   2: Utf8 "()V"
	//   3: Utf8 "Code"
	u2(6) // constant_pool_count (count+1)
	buf.WriteByte(1)
	utf8("main")
	buf.WriteByte(1)
	utf8("()V")
	buf.WriteByte(1)
	utf8("Code")
	// pad remaining declared slots with harmless Utf8 entries so the
	// count matches without requiring more machinery
	buf.WriteByte(1)
	utf8("x")
	buf.WriteByte(1)
	utf8("y")

	u2(0)    // access_flags
	u2(0)    // this_class
	u2(0)    // super_class
	u2(0)    // interfaces_count
	u2(0)    // fields_count

	u2(1) // methods_count
	u2(0) // access_flags
	u2(1) // name_index -> "main"
	u2(2) // descriptor_index -> "()V"
	u2(1) // attributes_count
	u2(3) // attribute_name_index -> "Code"

	var codeAttr bytes.Buffer
	binary.Write(&codeAttr, binary.BigEndian, uint16(4)) // max_stack
	binary.Write(&codeAttr, binary.BigEndian, uint16(2)) // max_locals
	binary.Write(&codeAttr, binary.BigEndian, uint32(len(code)))
	codeAttr.Write(code)
	binary.Write(&codeAttr, binary.BigEndian, uint16(0)) // exception_table_count
	binary.Write(&codeAttr, binary.BigEndian, uint16(0)) // attributes_count

	u4(uint32(codeAttr.Len()))
	buf.Write(codeAttr.Bytes())

	u2(0) // class attributes_count

	return buf.Bytes()
}

func TestParseMinimalClass(t *testing.T) {
	code := []byte{0xb1} // return
	data := buildMinimalClass(t, code)

	cf, err := classfile.Parse(data)
	require.NoError(t, err)
	require.Len(t, cf.Methods, 1)

	m := cf.Methods[0]
	assert.Equal(t, "main", m.Name)
	assert.Equal(t, code, m.Code)
	assert.Equal(t, 4, m.MaxStack)
	assert.Equal(t, 2, m.MaxLocals)
	assert.True(t, m.Descriptor.Return.IsVoid)

	idx := cf.MethodByName("main")
	assert.Equal(t, 0, idx)
	assert.Equal(t, -1, cf.MethodByName("nonexistent"))
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := classfile.Parse([]byte{0, 1, 2, 3})
	require.Error(t, err)
}
