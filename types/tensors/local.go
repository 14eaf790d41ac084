// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/types/shapes"
)

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) (t *Tensor) {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	t = newTensor(shape.Clone())
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	t.flat = flatV.Interface()
	return
}

// FromScalar creates a tensor with the given scalar value.
// The DType is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromFlatDataAndDimensions([]T{value})
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in
// `data`. The data is copied to the Tensor, so the caller keeps ownership of `data`.
// The DType is inferred from the `data` type.
//
// The Go type int is not accepted, since its size is platform dependent: use int32 or int64.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) (t *Tensor) {
	var dummy T
	if _, isInt := any(dummy).(int); isInt {
		exceptions.Panicf("FromFlatDataAndDimensions[int] not supported, use int32 or int64")
	}
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d", shape, len(data), shape.Size())
	}
	t = newTensor(shape)
	t.flat = slices.Clone(data)
	return
}

// lockedAssertValid is AssertValid for when the lock is already held.
func (t *Tensor) lockedAssertValid() {
	if t.flat == nil {
		panic(errors.Errorf("tensor %s is finalized", t.shape))
	}
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
// It locks the Tensor until accessFn returns.
//
// This provides accessFn with the actual Tensor data (not a copy), and it should not be changed.
// See Tensor.MutableFlatData to access a mutable version of the flat data.
//
// It panics if the tensor is finalized.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockedAssertValid()
	accessFn(t.flat)
}

// ConstFlatData is the "generics" version of Tensor.ConstFlatData().
//
// It panics if T doesn't match the tensor's dtype, or if the tensor is finalized.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("ConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, t.shape.DType, dtypes.FromGenericsType[T]())
	}
	t.ConstFlatData(func(anyFlat any) {
		accessFn(anyFlat.([]T))
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data. The contents of the slice
// can be changed until accessFn returns. During this time the Tensor is locked.
//
// It panics if the tensor is finalized.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockedAssertValid()
	accessFn(t.flat)
}

// MutableFlatData is the "generics" version of Tensor.MutableFlatData().
//
// It panics if T doesn't match the tensor's dtype, or if the tensor is finalized.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("MutableFlatData[%T] is incompatible with Tensor's dtype %s",
			v, t.shape.DType)
	}
	t.MutableFlatData(func(anyFlat any) {
		accessFn(anyFlat.([]T))
	})
}

// CopyFlatData returns a copy of the flat data of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var flatCopy []T
	ConstFlatData(t, func(flat []T) {
		flatCopy = slices.Clone(flat)
	})
	return flatCopy
}

// ToScalar returns the scalar value of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor, or if it is not a scalar.
func ToScalar[T dtypes.Supported](t *Tensor) (value T) {
	if !t.shape.IsScalar() {
		exceptions.Panicf("ToScalar[%T] requires scalar Tensor, got shape %s instead", value, t.shape)
	}
	ConstFlatData(t, func(flat []T) {
		value = flat[0]
	})
	return
}

// LayoutStrides return the strides for each axis. This can be handy when manipulating the flat data.
func (t *Tensor) LayoutStrides() (strides []int) {
	rank := t.shape.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	currentStride := 1
	for dim := rank - 1; dim >= 0; dim-- {
		strides[dim] = currentStride
		currentStride *= t.shape.Dimensions[dim]
	}
	return
}

// Equal checks whether t and otherTensor have the same shape and exactly the same values.
// If they are the same pointer they are considered equal.
//
// Slow implementation: fine for small tensors and tests.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	equal := true
	t.ConstFlatData(func(flat0 any) {
		otherTensor.ConstFlatData(func(flat1 any) {
			t0V := reflect.ValueOf(flat0)
			t1V := reflect.ValueOf(flat1)
			for ii := range t0V.Len() {
				if !t0V.Index(ii).Equal(t1V.Index(ii)) {
					equal = false
					return
				}
			}
		})
	})
	return equal
}

// InDelta checks whether Abs(t - otherTensor) <= delta for every element.
// Both tensors must have the same float dtype, otherwise it returns false.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) || !t.shape.DType.IsFloat() {
		return false
	}
	inDelta := true
	t.ConstFlatData(func(flat0 any) {
		otherTensor.ConstFlatData(func(flat1 any) {
			t0V := reflect.ValueOf(flat0)
			t1V := reflect.ValueOf(flat1)
			for ii := range t0V.Len() {
				if math.Abs(t0V.Index(ii).Float()-t1V.Index(ii).Float()) > delta {
					inDelta = false
					return
				}
			}
		})
	})
	return inDelta
}

// maxSummaryValues is the number of leading values printed by Summary.
const maxSummaryValues = 8

// Summary returns the shape and the first few values of the tensor.
func (t *Tensor) Summary() string {
	if !t.Ok() {
		return "Tensor(invalid)"
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%s", t.shape)
	t.ConstFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		n := min(flatV.Len(), maxSummaryValues)
		parts := make([]string, 0, n+1)
		for ii := range n {
			parts = append(parts, fmt.Sprintf("%v", flatV.Index(ii).Interface()))
		}
		if flatV.Len() > n {
			parts = append(parts, "...")
		}
		_, _ = fmt.Fprintf(&sb, "{%s}", strings.Join(parts, ", "))
	})
	return sb.String()
}

// String implements fmt.Stringer. See Summary.
func (t *Tensor) String() string {
	return t.Summary()
}
