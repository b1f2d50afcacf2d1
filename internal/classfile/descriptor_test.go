package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/classfile"
	"github.com/clflushopt/coldbrew/internal/value"
)

func TestParseMethodDescriptorLongIntDouble(t *testing.T) {
	d, err := classfile.ParseMethodDescriptor("(JI)D")
	require.NoError(t, err)
	require.Len(t, d.Args, 2)
	assert.Equal(t, value.Long, d.Args[0].Kind)
	assert.Equal(t, value.Int, d.Args[1].Kind)
	assert.Equal(t, value.Double, d.Return.Kind)
	assert.Equal(t, 3, d.ArgSlots()) // long occupies two slots, int one
}

func TestParseMethodDescriptorVoidNoArgs(t *testing.T) {
	d, err := classfile.ParseMethodDescriptor("()V")
	require.NoError(t, err)
	assert.Empty(t, d.Args)
	assert.True(t, d.Return.IsVoid)
	assert.Equal(t, 0, d.ArgSlots())
}

func TestParseMethodDescriptorStringLiteral(t *testing.T) {
	d, err := classfile.ParseMethodDescriptor("(Ljava/lang/String;)V")
	require.NoError(t, err)
	require.Len(t, d.Args, 1)
	assert.True(t, d.Args[0].IsRef)
	assert.Equal(t, 18, len(d.Args[0].Literal))
}

func TestParseMethodDescriptorArray(t *testing.T) {
	d, err := classfile.ParseMethodDescriptor("([I)V")
	require.NoError(t, err)
	require.Len(t, d.Args, 1)
	assert.True(t, d.Args[0].IsRef)
	assert.Equal(t, "[I", d.Args[0].Literal)
}

func TestParseMethodDescriptorMalformed(t *testing.T) {
	_, err := classfile.ParseMethodDescriptor("I)V")
	require.Error(t, err)
}
