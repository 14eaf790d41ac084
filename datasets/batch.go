// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/types/shapes"
	"github.com/gomlx/celebamask/types/tensors"
)

type batchElement struct {
	inputs, labels []*tensors.Tensor
	spec           any
}

// FinalizeAll calls FinalizeAll on all inputs and labels tensors.
func (e *batchElement) FinalizeAll() {
	tensors.FinalizeAll(e.inputs)
	tensors.FinalizeAll(e.labels)
}

// batchedDataset implements Dataset and batches results from the underlying dataset.
//
// See details in Batch, the function used to create it.
type batchedDataset struct {
	ds Dataset // Source Dataset.

	batchSize                              int
	createLeadingAxis, dropIncompleteBatch bool

	buffer []batchElement
	mu     sync.Mutex // Protects buffer.
}

// Batch creates a dataset that batches `ds` into batches of size `batchSize`.
// The tensors are concatenated on host memory.
//
// Typically, Batch can benefit from ReadAhead (or Parallel on the source dataset), so while
// one batch is being consumed, the next one is being built.
//
// Args:
//   - `ds`: the dataset to be batched.
//   - `batchSize`: size of each batch, except when there are no more examples, in which
//     case batches can be smaller (except if `dropIncompleteBatch` was selected).
//   - `createLeadingAxis`: usually set to true, it will create a new leading
//     axis that becomes the batch dimension. Otherwise, it simply concatenates the individual
//     results at the axis 0 -- this can be used for instance to increase the size of a batch.
//   - `dropIncompleteBatch`: at the end of an epoch, if there are not enough examples to fill a
//     batch, and this is set to true, the last batch is dropped. Otherwise, it returns only
//     a partial batch.
//
// Returns a `Dataset` that yields batched examples. The tensors yielded by `ds` are finalized once batched.
func Batch(ds Dataset, batchSize int, createLeadingAxis, dropIncompleteBatch bool) Dataset {
	return &batchedDataset{
		ds:                  ds,
		batchSize:           max(batchSize, 1),
		createLeadingAxis:   createLeadingAxis,
		dropIncompleteBatch: dropIncompleteBatch,
	}
}

// Name implements Dataset. It returns the dataset name.
func (ds *batchedDataset) Name() string {
	return fmt.Sprintf("%s [Batch]", ds.ds.Name())
}

// Reset implements Dataset.
func (ds *batchedDataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.lockedFreeBuffer()
	ds.ds.Reset()
}

// lockedFreeBuffer finalizes all intermediary tensors. It must be called with `ds.mu` locked.
func (ds *batchedDataset) lockedFreeBuffer() {
	for _, element := range ds.buffer {
		element.FinalizeAll()
	}
	ds.buffer = ds.buffer[0:0]
}

// Yield implements Dataset.
func (ds *batchedDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for len(ds.buffer) < ds.batchSize {
		var e batchElement
		e.spec, e.inputs, e.labels, err = ds.ds.Yield()
		if err == io.EOF {
			if ds.dropIncompleteBatch || len(ds.buffer) == 0 {
				ds.lockedFreeBuffer()
				return
			}
			// Else returns incomplete batch.
			err = nil
			break
		}
		if err != nil {
			ds.lockedFreeBuffer()
			return
		}
		ds.buffer = append(ds.buffer, e)
	}

	// In case this is the last one, and dropIncompleteBatch == false, it may be a partial batch.
	batched, err := ds.lockedBatchBuffer()
	ds.lockedFreeBuffer()
	if err != nil {
		return
	}
	spec, inputs, labels = batched.spec, batched.inputs, batched.labels
	return
}

// lockedBatchBuffer batches each element of inputs and labels, and take the first `spec` value.
// It assumes `ds.mu` is locked.
func (ds *batchedDataset) lockedBatchBuffer() (batched batchElement, err error) {
	if len(ds.buffer) == 0 {
		err = errors.Errorf("trying to batch a zero elements in the buffer!?")
		return
	}
	e := ds.buffer[0]
	batched.spec = e.spec

	// Check that the other elements of the buffer have the same shapes.
	for ii := 1; ii < len(ds.buffer); ii++ {
		if err = checkSameShapes("inputs", e.inputs, ds.buffer[ii].inputs); err != nil {
			return
		}
		if err = checkSameShapes("labels", e.labels, ds.buffer[ii].labels); err != nil {
			return
		}
	}

	allInputs := make([][]*tensors.Tensor, 0, len(ds.buffer))
	allLabels := make([][]*tensors.Tensor, 0, len(ds.buffer))
	for _, e := range ds.buffer {
		allInputs = append(allInputs, e.inputs)
		allLabels = append(allLabels, e.labels)
	}
	batched.inputs, err = ds.batchTensorsList(allInputs)
	if err != nil {
		return
	}
	batched.labels, err = ds.batchTensorsList(allLabels)
	return
}

func checkSameShapes(kind string, first, other []*tensors.Tensor) error {
	if len(first) != len(other) {
		return errors.Errorf("%s to be batched don't have all the same number of elements: seen one Yield() "+
			"returns %d elements and another returns %d elements", kind, len(first), len(other))
	}
	for ii, t := range other {
		if !first[ii].Shape().Equal(t.Shape()) {
			return errors.Errorf("%s #%d returned by Yield has varying shapes (seen %s and %s)",
				kind, ii, first[ii].Shape(), t.Shape())
		}
	}
	return nil
}

// batchTensorsList receives a list of inputs or labels collections, and concatenates them
// into a batch. Returns the list of the concatenated tensors.
func (ds *batchedDataset) batchTensorsList(elements [][]*tensors.Tensor) (batchedTensors []*tensors.Tensor, err error) {
	numBatchedTensors := len(elements[0])
	batchedTensors = make([]*tensors.Tensor, 0, numBatchedTensors)
	parts := make([]*tensors.Tensor, len(elements))
	for batchedTensorIdx := range numBatchedTensors {
		for ii, elementTensors := range elements {
			parts[ii] = elementTensors[batchedTensorIdx]
		}
		var batchedTensor *tensors.Tensor
		batchedTensor, err = BatchTensors(parts, ds.createLeadingAxis)
		if err != nil {
			return
		}
		batchedTensors = append(batchedTensors, batchedTensor)
	}
	return
}

// BatchTensors concatenates the given tensors, all with the same shape, on host memory.
//
// If createLeadingAxis is true the result has a new leading axis of dimension len(parts), otherwise
// the parts are concatenated on their first axis.
func BatchTensors(parts []*tensors.Tensor, createLeadingAxis bool) (*tensors.Tensor, error) {
	if len(parts) == 0 {
		return nil, errors.Errorf("BatchTensors: no tensors to batch")
	}
	shape := parts[0].Shape()
	var dims []int
	if createLeadingAxis {
		dims = append([]int{len(parts)}, shape.Dimensions...)
	} else {
		if shape.IsScalar() {
			return nil, errors.Errorf("BatchTensors: cannot concatenate scalars without creating a leading axis")
		}
		dims = slices.Clone(shape.Dimensions)
		dims[0] *= len(parts)
	}
	for ii, part := range parts {
		if !part.Shape().Equal(shape) {
			return nil, errors.Errorf("BatchTensors: tensor #%d has shape %s, but tensor #0 has shape %s", ii, part.Shape(), shape)
		}
	}
	batched := tensors.FromShape(shapes.Make(shape.DType, dims...))
	batched.MutableFlatData(func(flatAny any) {
		dst := reflect.ValueOf(flatAny)
		pos := 0
		for _, part := range parts {
			part.ConstFlatData(func(partFlat any) {
				src := reflect.ValueOf(partFlat)
				reflect.Copy(dst.Slice(pos, pos+src.Len()), src)
				pos += src.Len()
			})
		}
	})
	return batched, nil
}
