// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a host-only `Tensor`, a multi-dimensional array stored as a flat Go slice.
//
// Tensors are what the datasets in this module yield: images as (Float32)[3, H, W], labels as
// (Float32)[H, W], and small Int32 metadata tensors. The layout is row-major, the last axis is the
// fastest changing, so the data can be handed to a GoMLX backend as is.
//
// There are a few ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): copies the flat data
//     given into a new tensor with the given dimensions. Example:
//
//     t := FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
//   - FromScalar[T dtypes.Supported](value T): a scalar tensor.
//
// Data is accessed with ConstFlatData / MutableFlatData (and their generic versions), which lock the
// tensor while the access function runs.
package tensors

import (
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/types/shapes"
)

// Tensor is a multidimensional array, defined by its shape (a data type and its axes' dimensions) and its
// content stored as a flat (1D) slice of the Go type of the dtype.
//
// It is safe for concurrent use.
type Tensor struct {
	shape shapes.Shape

	mu sync.Mutex

	// flat holds the data, a slice of the Go type for the dtype of the shape.
	// It is nil once the tensor is finalized.
	flat any
}

func newTensor(shape shapes.Shape) *Tensor {
	return &Tensor{shape: shape}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
func (t *Tensor) DType() dtypes.DType {
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used by the tensor data.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Ok returns whether the Tensor is in a valid state: it is not nil, and it hasn't been finalized.
func (t *Tensor) Ok() bool {
	return t != nil && !t.IsFinalized()
}

// IsFinalized returns true if the tensor has already been finalized, and its data freed.
func (t *Tensor) IsFinalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flat == nil
}

// AssertValid panics if the tensor is nil or finalized.
func (t *Tensor) AssertValid() {
	if t == nil {
		panic(errors.New("tensor is nil"))
	}
	if t.IsFinalized() {
		panic(errors.Errorf("tensor %s is finalized", t.shape))
	}
}

// FinalizeAll releases the data of the tensor. It is not required, the garbage collector
// will reclaim it, but it is convenient for datasets that yield large batches at a fast pace.
//
// The tensor is left in an invalid state, and any access to its data will panic.
func (t *Tensor) FinalizeAll() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flat = nil
}

// FinalizeAll finalizes all the given tensors. Nil tensors are ignored.
func FinalizeAll(tensors []*Tensor) {
	for _, t := range tensors {
		t.FinalizeAll()
	}
}
