package interp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clflushopt/coldbrew/internal/interp"
	"github.com/clflushopt/coldbrew/internal/testprograms"
	"github.com/clflushopt/coldbrew/internal/value"
)

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name    string
		build   func() (*interp.Interpreter, error)
		want    int32
	}{
		{
			name: "CompareEq",
			build: func() (*interp.Interpreter, error) {
				p, err := testprograms.CompareEq()
				if err != nil {
					return nil, err
				}
				return interp.New(p, 2, nil), nil
			},
			want: 1,
		},
		{
			name: "SumLoop",
			build: func() (*interp.Interpreter, error) {
				p, err := testprograms.SumLoop()
				if err != nil {
					return nil, err
				}
				return interp.New(p, 2, nil), nil
			},
			want: 500500,
		},
		{
			name: "Factorial",
			build: func() (*interp.Interpreter, error) {
				p, err := testprograms.Factorial()
				if err != nil {
					return nil, err
				}
				return interp.New(p, 2, nil), nil
			},
			want: 120,
		},
		{
			name: "Remainder",
			build: func() (*interp.Interpreter, error) {
				p, err := testprograms.Remainder()
				if err != nil {
					return nil, err
				}
				return interp.New(p, 2, nil), nil
			},
			want: 2,
		},
		{
			name: "StaticCallInLoop",
			build: func() (*interp.Interpreter, error) {
				p, err := testprograms.StaticCallInLoop()
				if err != nil {
					return nil, err
				}
				return interp.New(p, 2, nil), nil
			},
			want: 500,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := tc.build()
			require.NoError(t, err)

			result, err := in.Run(false)
			require.NoError(t, err)
			top, ok := result.Last()
			require.True(t, ok)
			assert.Equal(t, value.Int, top.Kind)
			assert.Equal(t, tc.want, top.Int)
		})
	}
}

// TestHotLoopKernelMatchesWithAndWithoutJIT asserts that enabling the
// JIT flag never changes a scenario's observable result.
func TestHotLoopKernelMatchesWithAndWithoutJIT(t *testing.T) {
	build := func() (*interp.Interpreter, error) {
		p, err := testprograms.HotLoopKernel()
		if err != nil {
			return nil, err
		}
		return interp.New(p, 2, nil), nil
	}

	without, err := build()
	require.NoError(t, err)
	resultWithout, err := without.Run(false)
	require.NoError(t, err)
	topWithout, ok := resultWithout.Last()
	require.True(t, ok)
	assert.Equal(t, int32(55), topWithout.Int)

	with, err := build()
	require.NoError(t, err)
	resultWith, err := with.Run(true)
	require.NoError(t, err)
	topWith, ok := resultWith.Last()
	require.True(t, ok)
	assert.Equal(t, topWithout.Int, topWith.Int)
}
