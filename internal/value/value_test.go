package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/value"
)

func TestAddWrapsOnOverflow(t *testing.T) {
	got, err := value.Add(value.OfInt(math.MaxInt32), value.OfInt(1))
	require.NoError(t, err)
	assert.Equal(t, value.OfInt(math.MinInt32), got)
}

func TestAddMismatchedKindsErrors(t *testing.T) {
	_, err := value.Add(value.OfInt(1), value.OfLong(1))
	require.Error(t, err)
	var mismatch *value.ErrKindMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestDivideByZeroIsFatal(t *testing.T) {
	_, err := value.Div(value.OfInt(10), value.OfInt(0))
	require.ErrorIs(t, err, value.ErrDivideByZero)

	_, err = value.Rem(value.OfLong(10), value.OfLong(0))
	require.ErrorIs(t, err, value.ErrDivideByZero)
}

func TestCompareTotalOrder(t *testing.T) {
	lt, err := value.Compare(value.OfInt(1), value.OfInt(2))
	require.NoError(t, err)
	assert.Equal(t, -1, lt)

	eq, err := value.Compare(value.OfDouble(3.14), value.OfDouble(3.14))
	require.NoError(t, err)
	assert.Equal(t, 0, eq)

	gt, err := value.Compare(value.OfFloat(2), value.OfFloat(1))
	require.NoError(t, err)
	assert.Equal(t, 1, gt)
}

func TestConvertTotal(t *testing.T) {
	v := value.OfInt(65)
	assert.Equal(t, value.OfLong(65), v.ConvertTo(value.Long))
	assert.Equal(t, value.OfFloat(65), v.ConvertTo(value.Float))
	assert.Equal(t, value.OfDouble(65), v.ConvertTo(value.Double))

	d := value.OfDouble(3.9)
	assert.Equal(t, value.OfInt(3), d.ConvertTo(value.Int))
}

func TestKindSlots(t *testing.T) {
	assert.Equal(t, 1, value.Int.Slots())
	assert.Equal(t, 2, value.Long.Slots())
	assert.Equal(t, 1, value.Float.Slots())
	assert.Equal(t, 2, value.Double.Slots())
}
