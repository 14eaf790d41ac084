// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets defines the Dataset interface and a few generic wrappers to iterate over
// datasets: Batch, Parallel (and CustomParallel), ReadAhead and Take.
//
// All batching happens on host memory: the yielded tensors are plain Go slices, ready to be
// transferred to an accelerator by the training loop.
package datasets

import (
	"fmt"
	"io"
	"sync"

	"github.com/gomlx/celebamask/types/tensors"
)

// Dataset for a training or evaluation loop. It yields one unit of data at a time, e.g. one
// sample, or one batch.
type Dataset interface {
	// Name identifies the dataset. Used for debugging, pretty-printing and logging.
	Name() string

	// Reset restarts the dataset from the beginning. Can be called after io.EOF is reached,
	// for instance when running another epoch.
	Reset()

	// Yield one unit of data, or an error. It returns io.EOF at the end of an epoch.
	//
	// It returns a `spec` for the dataset (an opaque value, usually the same for every yield),
	// a slice of `inputs` and a slice of `labels` tensors (even when there is only one tensor for each of them).
	//
	// The ownership of `inputs` and `labels` is transferred to the caller.
	Yield() (spec any, inputs, labels []*tensors.Tensor, err error)
}

// HasShortName is an optional interface a Dataset can implement, used for logging.
type HasShortName interface {
	ShortName() string
}

// takeDataset implements a `Dataset` that only yields `take` elements.
type takeDataset struct {
	ds          Dataset
	mu          sync.Mutex
	count, take int
}

// Take returns a wrapper to `ds`, a `Dataset` that only yields `n` elements per epoch.
// It is safe for concurrent use if `ds` is.
func Take(ds Dataset, n int) Dataset {
	return &takeDataset{
		ds:   ds,
		take: n,
	}
}

// Name implements Dataset. It returns the dataset name.
func (ds *takeDataset) Name() string {
	return fmt.Sprintf("%s [Take %d]", ds.ds.Name(), ds.take)
}

// Reset implements Dataset.
func (ds *takeDataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.ds.Reset()
	ds.count = 0
}

// Yield implements Dataset.
func (ds *takeDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	if ds.count >= ds.take {
		ds.mu.Unlock()
		err = io.EOF
		return
	}
	ds.count++
	ds.mu.Unlock()
	spec, inputs, labels, err = ds.ds.Yield()
	return
}
