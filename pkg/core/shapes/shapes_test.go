// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.True(t, shape1.IsFullyKnown())
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 4, 0) })
	require.Panics(t, func() { _ = Make(dtypes.Float32, UnknownDim) })
}

func TestDynamic(t *testing.T) {
	shape := MakeDynamic(dtypes.Int32, 1, UnknownDim, 7)
	require.False(t, shape.IsFullyKnown())
	require.Equal(t, UnknownDim, shape.Size())
	require.Equal(t, 0, int(shape.Memory()))
	require.Equal(t, "(Int32)[1 ? 7]", shape.String())
	require.Panics(t, func() { _ = MakeDynamic(dtypes.Int32, -2) })

	unknown := Unknown(dtypes.Float32, 3)
	require.Equal(t, []int{UnknownDim, UnknownDim, UnknownDim}, unknown.Dimensions)
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	s1 := Make(dtypes.Float32, 2, 3)
	s2 := s1.Clone()
	s2.Dimensions[0] = 5
	require.Equal(t, 2, s1.Dim(0))
	require.False(t, s1.Equal(s2))
	require.True(t, s1.Equal(Make(dtypes.Float32, 2, 3)))
	require.False(t, s1.Equal(Make(dtypes.Int32, 2, 3)))
	require.True(t, s1.EqualDimensions(Make(dtypes.Int32, 2, 3)))
}

func TestCheckDims(t *testing.T) {
	shape := Make(dtypes.Float32, 1, 49, 448)
	require.NoError(t, shape.CheckDims(1, -1, 448))
	require.Error(t, shape.CheckDims(1, 49))
	require.Error(t, shape.CheckDims(1, 48, 448))
	require.Panics(t, func() { shape.AssertDims(2, 49, 448) })
}

func TestStrides(t *testing.T) {
	require.Equal(t, []int{12, 4, 1}, Make(dtypes.Float32, 2, 3, 4).Strides())
	require.Equal(t, []int{}, Make(dtypes.Float32).Strides())
}
