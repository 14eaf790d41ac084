// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/celebamask"
	"github.com/gomlx/celebamask/types/tensors"
)

// sampleRecord is one row of the samples CSV.
type sampleRecord struct {
	Index          int     `dataframe:"index,int"`
	OriginalHeight int     `dataframe:"original_height,int"`
	OriginalWidth  int     `dataframe:"original_width,int"`
	IgnoredPixels  int     `dataframe:"ignored_pixels,int"`
	NumClasses     int     `dataframe:"num_classes,int"`
	MeanValue      float64 `dataframe:"mean_value,float"`
}

// statistics accumulates what was yielded by the dataset.
type statistics struct {
	ignoreLabel int
	samples     []sampleRecord
	classPixels []int64
	ignored     int64
	other       int64
	bytes       atomic.Uint64 // Read by the progress bar.
}

func newStatistics(config *augment.Config) *statistics {
	return &statistics{
		ignoreLabel: config.IgnoreLabel,
		classPixels: make([]int64, celebamask.NumClasses),
	}
}

// addBatch accounts for one batch yielded by the batched dataset: inputs are the images, the indices and
// the original sizes, and labels hold the label maps.
func (s *statistics) addBatch(inputs, labels []*tensors.Tensor) error {
	if len(inputs) != 3 || len(labels) != 1 {
		return errors.Errorf("expected 3 inputs and 1 label tensors, got %d and %d", len(inputs), len(labels))
	}
	images, indices, sizes, labelMaps := inputs[0], inputs[1], inputs[2], labels[0]
	batchSize := images.Shape().Dim(0)
	if err := labelMaps.Shape().CheckDims(batchSize, -1, -1); err != nil {
		return errors.WithMessage(err, "invalid labels batch")
	}
	for _, t := range inputs {
		s.bytes.Add(uint64(t.Memory()))
	}
	s.bytes.Add(uint64(labelMaps.Memory()))
	indicesFlat := tensors.CopyFlatData[int32](indices)
	sizesFlat := tensors.CopyFlatData[int32](sizes)
	imageSize := images.Size() / batchSize
	labelSize := labelMaps.Size() / batchSize

	meanValues := make([]float64, batchSize)
	tensors.ConstFlatData(images, func(flat []float32) {
		for ii := range batchSize {
			var sum float64
			for _, value := range flat[ii*imageSize : (ii+1)*imageSize] {
				sum += float64(value)
			}
			meanValues[ii] = sum / float64(imageSize)
		}
	})
	tensors.ConstFlatData(labelMaps, func(flat []float32) {
		for ii := range batchSize {
			record := sampleRecord{
				Index:          int(indicesFlat[ii]),
				OriginalHeight: int(sizesFlat[ii*3]),
				OriginalWidth:  int(sizesFlat[ii*3+1]),
				MeanValue:      meanValues[ii],
			}
			seen := make(map[int]bool)
			for _, value := range flat[ii*labelSize : (ii+1)*labelSize] {
				class := int(value)
				switch {
				case class == s.ignoreLabel:
					record.IgnoredPixels++
					s.ignored++
				case class >= 0 && class < len(s.classPixels):
					s.classPixels[class]++
					seen[class] = true
				default:
					s.other++
				}
			}
			record.NumClasses = len(seen)
			s.samples = append(s.samples, record)
		}
	})
	return nil
}

// classFractions returns the fraction of labeled pixels of each class, not counting ignored pixels.
func (s *statistics) classFractions() []float64 {
	var total int64
	for _, count := range s.classPixels {
		total += count
	}
	fractions := make([]float64, len(s.classPixels))
	if total == 0 {
		return fractions
	}
	for ii, count := range s.classPixels {
		fractions[ii] = float64(count) / float64(total)
	}
	return fractions
}
