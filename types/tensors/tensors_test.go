// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/celebamask/types/shapes"
)

func TestFromShape(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 2, 3))
	require.Equal(t, dtypes.Float32, tensor.DType())
	require.Equal(t, 6, tensor.Size())
	require.Equal(t, 2, tensor.Rank())
	ConstFlatData(tensor, func(flat []float32) {
		require.Len(t, flat, 6)
		for _, v := range flat {
			require.Zero(t, v)
		}
	})
	require.Panics(t, func() { ConstFlatData(tensor, func(flat []uint8) {}) })
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	tensor := FromFlatDataAndDimensions(data, 2, 3)
	require.Equal(t, []int{2, 3}, tensor.Shape().Dimensions)

	// Data is copied.
	data[0] = 100
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, CopyFlatData[float32](tensor))

	MutableFlatData(tensor, func(flat []float32) { flat[5] = -1 })
	require.Equal(t, float32(-1), CopyFlatData[float32](tensor)[5])
	require.Equal(t, []int{3, 1}, tensor.LayoutStrides())

	require.Panics(t, func() { _ = FromFlatDataAndDimensions([]float32{1, 2}, 3) })
	require.Panics(t, func() { _ = FromFlatDataAndDimensions([]int{1, 2}, 2) })
}

func TestScalar(t *testing.T) {
	tensor := FromScalar(int32(7))
	require.True(t, tensor.IsScalar())
	require.Equal(t, dtypes.Int32, tensor.DType())
	require.Equal(t, int32(7), ToScalar[int32](tensor))
	require.Panics(t, func() { _ = ToScalar[float32](tensor) })
}

func TestEqualAndInDelta(t *testing.T) {
	a := FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	b := FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)
	c := FromFlatDataAndDimensions([]float32{1, 2, 3.001}, 3)
	d := FromFlatDataAndDimensions([]float32{1, 2, 3}, 1, 3)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.True(t, a.InDelta(c, 0.01))
	assert.False(t, a.InDelta(c, 1e-5))
	assert.Equal(t, "(Float32)[3]{1, 2, 3}", a.String())
}

func TestFinalize(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]uint8{1, 2, 3, 4}, 2, 2)
	require.True(t, tensor.Ok())
	FinalizeAll([]*Tensor{tensor, nil})
	require.True(t, tensor.IsFinalized())
	require.False(t, tensor.Ok())
	require.Panics(t, func() { _ = CopyFlatData[uint8](tensor) })
	require.Equal(t, "Tensor(invalid)", tensor.String())
}
