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
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 3, 321, 321)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 3*321*321, shape1.Size())
	require.Equal(t, 4*3*321*321, int(shape1.Memory()))
	require.Equal(t, "(Float32)[3 321 321]", shape1.String())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 3, 0) })
	require.Equal(t, dtypes.Int32, Scalar[int32]().DType)
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	s := Make(dtypes.Float32, 5, 7)
	s2 := s.Clone()
	require.True(t, s.Equal(s2))
	s2.Dimensions[0] = 6
	require.False(t, s.Equal(s2))
	require.Equal(t, 5, s.Dim(0))

	s3 := Make(dtypes.Uint8, 5, 7)
	require.False(t, s.Equal(s3))
	require.True(t, s.EqualDimensions(s3))
}

func TestCheckDims(t *testing.T) {
	s := Make(dtypes.Float32, 3, 10, 12)
	require.NoError(t, s.CheckDims(3, 10, 12))
	require.NoError(t, s.CheckDims(3, -1, -1))
	require.Error(t, s.CheckDims(3, 10))
	require.Error(t, s.CheckDims(1, 10, 12))
	require.Panics(t, func() { s.AssertDims(3, 11, 12) })
}
