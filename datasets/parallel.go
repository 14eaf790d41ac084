// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/celebamask/support/xsync"
	"github.com/gomlx/celebamask/types/tensors"
)

// ParallelDataset is a wrapper around a `Dataset` that parallelizes calls to Yield.
// See details in CustomParallel.
type ParallelDataset struct {
	Dataset Dataset

	// name is set by default to the underlying dataset name.
	name, shortName string

	// parallelism is the number of goroutines started generating examples.
	parallelism int

	// extraBufferSize is the size of the buffer of pre-generated elements.
	extraBufferSize int

	// impl is the actual implementation.
	impl *parallelDatasetImpl
}

type yieldUnit struct {
	spec   any
	inputs []*tensors.Tensor
	labels []*tensors.Tensor
}

// epochState holds the goroutines' synchronization of one epoch.
type epochState struct {
	stop, finished *xsync.Latch
	waitGroup      sync.WaitGroup
}

// parallelDatasetImpl separates the implementation of ParallelDataset. It's important
// that it doesn't point back to the original ParallelDataset, so garbage collecting
// it will also stop the goroutines.
type parallelDatasetImpl struct {
	config ParallelDataset // A copy of the configuration.

	buffer chan yieldUnit
	epoch  *epochState

	// stopped is triggered with the error that stopped the dataset: the first error returned
	// by the underlying dataset, or a "stopped" error if Done was called.
	stopped *xsync.LatchWithValue[error]
}

func (impl *parallelDatasetImpl) stop() {
	impl.stopped.Trigger(errors.Errorf("ParallelDataset %q was stopped", impl.config.name))
}

// Parallel parallelizes yield calls of any thread-safe Dataset.
//
// It uses CustomParallel and automatically starts it with the default parameters.
//
// To avoid leaking goroutines, call ParallelDataset.Done when exiting.
//
// The order of the yields is not preserved: the parallelization may yield results in a different order.
//
// Example:
//
//	ds, err := celebamask.NewDataset(...)
//	pds := datasets.Parallel(ds)
//	defer pds.Done()
func Parallel(ds Dataset) *ParallelDataset {
	pd := CustomParallel(ds)
	return pd.Buffer(pd.parallelism).Start()
}

// CustomParallel builds a ParallelDataset that can be used to parallelize any
// Dataset, as long as the underlying dataset ds is thread-safe.
//
// ParallelDataset can be further configured (see Parallelism and Buffer),
// and then one has to call Start before actually using the Dataset.
//
// To avoid leaking goroutines, call ParallelDataset.Done when exiting.
//
// Example:
//
//	pds := datasets.CustomParallel(ds).Parallelism(4).Buffer(10).Start()
//	defer pds.Done()
func CustomParallel(ds Dataset) *ParallelDataset {
	pd := &ParallelDataset{
		name:    ds.Name(),
		Dataset: ds,
	}
	if sn, ok := ds.(HasShortName); ok {
		pd.shortName = sn.ShortName()
	} else {
		pd.shortName = pd.name[:min(3, len(pd.name))]
	}
	pd.Parallelism(0) // 0 here means it will take the number of cores available.
	return pd
}

// Parallelism is the number of goroutines to start, each calling `ds.Yield()` in parallel.
// If set to 0 (the default), it will use the number of cores in the system plus 1.
//
// This must be called before a call to Start.
//
// It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) Parallelism(n int) *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset invalid configuration change after Start has been called.")
		return nil
	}
	if n <= 0 {
		n = runtime.NumCPU() + 1
	}
	pd.parallelism = n
	return pd
}

// WithName sets the name of the parallel dataset, and optionally its short name.
// It defaults to the original dataset name.
//
// It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) WithName(name string, shortName ...string) *ParallelDataset {
	pd.name = name
	if len(shortName) > 0 {
		pd.shortName = shortName[0]
	}
	return pd
}

// Buffer reserved in the channel that collects the parallel yields.
// Notice there is already an intrinsic buffering that happens in the goroutines sampling
// in parallel.
//
// This must be called before a call to Start.
//
// It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) Buffer(n int) *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset invalid configuration change after Start has been called.")
		return nil
	}
	pd.extraBufferSize = max(n, 0)
	return pd
}

// Start indicates that the dataset is finished to be configured, and starts
// being a valid Dataset.
//
// After Start its configuration can no longer be changed.
//
// It returns the updated ParallelDataset, so calls can be cascaded.
func (pd *ParallelDataset) Start() *ParallelDataset {
	if pd.impl != nil {
		klog.Errorf("ParallelDataset.Start called more than once!?")
		return nil
	}
	impl := &parallelDatasetImpl{
		buffer:  make(chan yieldUnit, pd.extraBufferSize),
		stopped: xsync.NewLatchWithValue[error](),
		config:  *pd, // Copy.
	}
	pd.impl = impl
	// If the ParallelDataset is garbage collected, stop all parallel goroutines.
	runtime.SetFinalizer(pd, func(pd *ParallelDataset) {
		if pd.impl != nil {
			pd.impl.stop()
			pd.impl = nil
		}
	})
	impl.startGoRoutines()
	return pd
}

// stoppedError returns the error that stopped the dataset, or nil if it is still running.
func (impl *parallelDatasetImpl) stoppedError() error {
	err, _ := impl.stopped.Value()
	return err
}

func (impl *parallelDatasetImpl) startGoRoutines() {
	epoch := &epochState{
		stop:     xsync.NewLatch(),
		finished: xsync.NewLatch(),
	}
	impl.epoch = epoch
	for range impl.config.parallelism {
		epoch.waitGroup.Add(1)
		go func() {
			defer epoch.waitGroup.Done()
			for {
				select {
				case <-epoch.stop.WaitChan():
					return
				case <-impl.stopped.WaitChan():
					return
				default:
					// Move forward and generate the next element.
				}
				var unit yieldUnit
				var err error
				unit.spec, unit.inputs, unit.labels, err = impl.config.Dataset.Yield()
				if err == io.EOF {
					return
				}
				if err != nil {
					klog.Errorf("ParallelDataset %q: %+v", impl.config.name, err)
					// Fatal error, stop everything.
					impl.stopped.Trigger(err)
					return
				}
				select {
				case <-epoch.stop.WaitChan():
					tensors.FinalizeAll(unit.inputs)
					tensors.FinalizeAll(unit.labels)
					return
				case <-impl.stopped.WaitChan():
					return
				case impl.buffer <- unit:
					// Element generated and buffered, move to next.
				}
			}
		}()
	}

	// Controller: signals the end of the epoch once all goroutines are finished.
	go func() {
		epoch.waitGroup.Wait()
		epoch.finished.Trigger()
	}()
}

// Name implements Dataset.
func (pd *ParallelDataset) Name() string {
	return pd.name
}

// ShortName returns a short version of the dataset name, it implements HasShortName.
func (pd *ParallelDataset) ShortName() string {
	return pd.shortName
}

// Done stops the parallel goroutines and waits for them to finish.
// The ParallelDataset can no longer be used after that.
func (pd *ParallelDataset) Done() {
	impl := pd.impl
	if impl == nil {
		return
	}
	pd.impl = nil
	impl.stop()
	impl.epoch.finished.Wait()
}

// Reset implements Dataset. It stops the current epoch, discards the buffered elements,
// resets the underlying dataset and starts generating again.
//
// If the dataset was stopped by an error, Reset is a no-op and Yield keeps returning the error.
func (pd *ParallelDataset) Reset() {
	impl := pd.impl
	if impl == nil {
		klog.Warningf("ParallelDataset.Reset was called before it was started with ParallelDataset.Start or after ParallelDataset.Done")
		return
	}

	// Indicate to goroutines to stop generating, and drain whatever is still in the buffer.
	epoch := impl.epoch
	epoch.stop.Trigger()
drainDataset:
	for {
		select {
		case <-impl.stopped.WaitChan():
			return
		case <-epoch.finished.WaitChan():
			break drainDataset
		case unit := <-impl.buffer:
			tensors.FinalizeAll(unit.inputs)
			tensors.FinalizeAll(unit.labels)
		}
	}
	for len(impl.buffer) > 0 {
		unit := <-impl.buffer
		tensors.FinalizeAll(unit.inputs)
		tensors.FinalizeAll(unit.labels)
	}

	// Reset underlying dataset and start again.
	impl.config.Dataset.Reset()
	impl.startGoRoutines()
	runtime.KeepAlive(pd)
}

// Yield implements Dataset.
//
// Yield and Reset must be called from one goroutine at a time.
func (pd *ParallelDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	impl := pd.impl
	if impl == nil {
		err = errors.Errorf("ParallelDataset.Yield was called before it was started with ParallelDataset.Start or after it was stopped with ParallelDataset.Done")
		return
	}
	if err = impl.stoppedError(); err != nil {
		return
	}
	var unit yieldUnit
	select {
	case <-impl.stopped.WaitChan():
		err = impl.stoppedError()
		return
	case unit = <-impl.buffer:
		// We got a new element.
	case <-impl.epoch.finished.WaitChan():
		// No more elements being produced (until Reset() is called), but we still need to exhaust the buffer.
		select {
		case unit = <-impl.buffer:
		default:
			if err = impl.stoppedError(); err == nil {
				err = io.EOF
			}
			return
		}
	}
	spec, inputs, labels = unit.spec, unit.inputs, unit.labels
	runtime.KeepAlive(pd)
	return
}

// ReadAhead returns a Dataset that reads bufferSize elements of the given `ds`
// so that when Yield is called, the results are immediate.
//
// It uses ParallelDataset with only one goroutine, so the order of the elements is preserved.
func ReadAhead(ds Dataset, bufferSize int) Dataset {
	if bufferSize <= 0 {
		return ds
	}
	return CustomParallel(ds).Parallelism(1).Buffer(bufferSize - 1).Start()
}
