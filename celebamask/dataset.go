// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celebamask

import (
	"io"
	"math/rand/v2"
	"sync"

	"k8s.io/klog/v2"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/datasets"
	"github.com/gomlx/celebamask/types/tensors"
)

// Dataset of CelebAMask-HQ samples, loaded on demand and augmented. It implements datasets.Dataset,
// yielding one sample at a time:
//
//   - spec: the *Dataset itself.
//   - inputs[0]: the image, shaped (Float32)[3, crop_height, crop_width], mean subtracted.
//   - inputs[1]: the sample index, an Int32 scalar.
//   - inputs[2]: the original size of the image {height, width, channels}, shaped (Int32)[3].
//   - labels[0]: the label, shaped (Float32)[crop_height, crop_width].
//
// Each sample gets its own random number generator, derived from the dataset seed, the sample index and the
// epoch (see SampleRNG), so the results don't depend on how many goroutines are reading from the dataset.
//
// Yield is safe for concurrent use, and can be wrapped with datasets.Parallel.
type Dataset struct {
	name        string
	descriptors *Descriptors
	pipeline    *augment.Pipeline
	seed        uint64

	// mu protects the fields below.
	mu          sync.Mutex
	epoch       uint64
	next        int
	shuffle     bool
	shuffleSeed uint64
	order       []int // Sample order for the current epoch if shuffling, nil otherwise.
	infinite    bool
}

// Assert Dataset implements datasets.Dataset.
var _ datasets.Dataset = (*Dataset)(nil)

// NewDataset enumerates the samples under root (see NewDescriptors) and creates a Dataset that augments
// them with the given configuration. The seed is used to derive the random number generator of each sample.
func NewDataset(name, root string, config *augment.Config, seed uint64) (*Dataset, error) {
	pipeline, err := augment.NewPipeline(config)
	if err != nil {
		return nil, err
	}
	descriptors, err := NewDescriptors(root)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		name:        name,
		descriptors: descriptors,
		pipeline:    pipeline,
		seed:        seed,
	}, nil
}

// Name implements datasets.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// Len returns the number of samples in one epoch.
func (ds *Dataset) Len() int { return ds.descriptors.Len() }

// Descriptors returns the table of samples of the dataset.
func (ds *Dataset) Descriptors() *Descriptors { return ds.descriptors }

// Pipeline returns the augmentation pipeline used by the dataset.
func (ds *Dataset) Pipeline() *augment.Pipeline { return ds.pipeline }

// WithShuffle makes the dataset yield its samples in a random order, drawn again at every Reset.
// The order of each epoch is derived from seed.
//
// It returns the Dataset, so configuration calls can be cascaded.
func (ds *Dataset) WithShuffle(seed uint64) *Dataset {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.shuffle = true
	ds.shuffleSeed = seed
	ds.lockedShuffle()
	return ds
}

// Infinite makes the dataset loop indefinitely: when an epoch ends, a new one starts (reshuffled if
// shuffling), and io.EOF is never returned.
//
// It returns the Dataset, so configuration calls can be cascaded.
func (ds *Dataset) Infinite(infinite bool) *Dataset {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.infinite = infinite
	return ds
}

// lockedShuffle draws the order of the current epoch.
func (ds *Dataset) lockedShuffle() {
	if !ds.shuffle {
		ds.order = nil
		return
	}
	rng := rand.New(rand.NewPCG(ds.shuffleSeed, ds.epoch))
	ds.order = rng.Perm(ds.descriptors.Len())
}

// lockedNewEpoch starts a new epoch.
func (ds *Dataset) lockedNewEpoch() {
	ds.epoch++
	ds.next = 0
	ds.lockedShuffle()
}

// Reset implements datasets.Dataset. It starts a new epoch.
func (ds *Dataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.lockedNewEpoch()
	klog.V(2).Infof("dataset %q: starting epoch %d", ds.name, ds.epoch)
}

// Epoch returns the current epoch number, starting from 0.
func (ds *Dataset) Epoch() uint64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.epoch
}

// nextIndex selects the next sample to yield. It returns ok=false at the end of the epoch.
func (ds *Dataset) nextIndex() (index int, epoch uint64, ok bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	n := ds.descriptors.Len()
	if n == 0 {
		return
	}
	if ds.next >= n {
		if !ds.infinite {
			return
		}
		ds.lockedNewEpoch()
	}
	index = ds.next
	if ds.order != nil {
		index = ds.order[ds.next]
	}
	ds.next++
	return index, ds.epoch, true
}

// SampleRNG returns the random number generator used to augment sample index in the given epoch.
func (ds *Dataset) SampleRNG(index int, epoch uint64) *rand.Rand {
	stream := uint64(index) + epoch*uint64(ds.descriptors.Len())
	return rand.New(rand.NewPCG(ds.seed, stream))
}

// Item loads sample i and augments it, drawing the random values from rng.
// Errors are returned as *LoadError.
func (ds *Dataset) Item(i int, rng *rand.Rand) (*augment.Sample, error) {
	desc, err := ds.descriptors.Descriptor(i)
	if err != nil {
		return nil, newLoadError(i, "", "", err)
	}
	img, err := LoadImage(desc.ImagePath)
	if err != nil {
		return nil, newLoadError(i, desc.Name, desc.ImagePath, err)
	}
	label, err := LoadLabel(desc.LabelPath)
	if err != nil {
		return nil, newLoadError(i, desc.Name, desc.LabelPath, err)
	}
	sample, err := ds.pipeline.Transform(img, label, desc.Name, rng)
	if err != nil {
		return nil, newLoadError(i, desc.Name, "", err)
	}
	return sample, nil
}

// Yield implements datasets.Dataset. See Dataset for the tensors returned.
// It returns io.EOF at the end of the epoch.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	index, epoch, ok := ds.nextIndex()
	if !ok {
		err = io.EOF
		return
	}
	sample, err := ds.Item(index, ds.SampleRNG(index, epoch))
	if err != nil {
		return
	}
	originalSize := make([]int32, len(sample.OriginalSize))
	for ii, dim := range sample.OriginalSize {
		originalSize[ii] = int32(dim)
	}
	spec = ds
	inputs = []*tensors.Tensor{
		sample.Image,
		tensors.FromScalar(int32(index)),
		tensors.FromFlatDataAndDimensions(originalSize, len(originalSize)),
	}
	labels = []*tensors.Tensor{sample.Label}
	return
}
