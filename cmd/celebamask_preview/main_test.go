// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/celebamask"
	"github.com/gomlx/celebamask/datasets"
	"github.com/gomlx/celebamask/types/tensors"
	"github.com/gomlx/celebamask/ui/commandline"
)

const (
	testHeight = 20
	testWidth  = 24
)

func writeImageFile(t *testing.T, path string, img image.Image, isJPEG bool) {
	f, err := os.Create(path)
	require.NoError(t, err)
	if isJPEG {
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	} else {
		require.NoError(t, png.Encode(f, img))
	}
	require.NoError(t, f.Close())
}

// writeTestDataset creates numSamples images and masks under a temporary directory.
func writeTestDataset(t *testing.T, numSamples int) string {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, celebamask.ImagesDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, celebamask.MasksDir), 0o755))
	for id := range numSamples {
		img := image.NewNRGBA(image.Rect(0, 0, testWidth, testHeight))
		label := image.NewGray(image.Rect(0, 0, testWidth, testHeight))
		for y := range testHeight {
			for x := range testWidth {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(10 * y), B: uint8(id), A: 255})
				label.SetGray(x, y, color.Gray{Y: uint8((x/6 + id) % celebamask.NumClasses)})
			}
		}
		name := strconv.Itoa(id)
		writeImageFile(t, filepath.Join(root, celebamask.ImagesDir, name+celebamask.ImageExt), img, true)
		writeImageFile(t, filepath.Join(root, celebamask.MasksDir, name+celebamask.MaskExt), label, false)
	}
	return root
}

// batchOfOne adds a leading batch axis of dimension 1 to each tensor.
func batchOfOne(t *testing.T, parts []*tensors.Tensor) []*tensors.Tensor {
	batched := make([]*tensors.Tensor, len(parts))
	for ii, part := range parts {
		var err error
		batched[ii], err = datasets.BatchTensors([]*tensors.Tensor{part}, true)
		require.NoError(t, err)
	}
	return batched
}

func TestConfigFromParams(t *testing.T) {
	params := createDefaultParams()
	_, err := commandline.ParseSettings(params, "crop_size=64;mean=1,2,3;scale=false;mirror=false;ignore_label=100")
	require.NoError(t, err)
	config := configFromParams(params)
	assert.Equal(t, 64, config.CropHeight)
	assert.Equal(t, 64, config.CropWidth)
	assert.Equal(t, [3]float64{1, 2, 3}, config.Mean)
	assert.False(t, config.Scale)
	assert.False(t, config.Mirror)
	assert.Equal(t, 100, config.IgnoreLabel)

	// Invalid mean is ignored.
	params = createDefaultParams()
	_, err = commandline.ParseSettings(params, "mean=1,2")
	require.NoError(t, err)
	assert.Equal(t, augment.DefaultMean, configFromParams(params).Mean)
}

func TestRun(t *testing.T) {
	const numSamples = 5
	root := writeTestDataset(t, numSamples)
	outDir := t.TempDir()
	*flagDataDir = root
	*flagNumSamples = 0
	*flagOutputDir = filepath.Join(outDir, "previews")
	*flagPreviews = 3
	*flagCSV = filepath.Join(outDir, "samples.csv")
	*flagPlot = filepath.Join(outDir, "classes.png")
	*flagCheck = true

	params := createDefaultParams()
	_, err := commandline.ParseSettings(params, "crop_size=16;batch_size=2;parallelism=2")
	require.NoError(t, err)
	require.NoError(t, run(params))

	// Previews.
	entries, err := os.ReadDir(*flagOutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	f, err := os.Open(filepath.Join(*flagOutputDir, entries[0].Name()))
	require.NoError(t, err)
	preview, err := png.Decode(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3*16, 16), preview.Bounds())

	// CSV: header plus one line per sample, sorted by index.
	contents, err := os.ReadFile(*flagCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	require.Len(t, lines, numSamples+1)
	assert.Equal(t, "index,original_height,original_width,ignored_pixels,num_classes,mean_value", lines[0])
	for ii := range numSamples {
		assert.True(t, strings.HasPrefix(lines[ii+1], strconv.Itoa(ii)+",20,24,"), "line %d: %q", ii+1, lines[ii+1])
	}

	// Plot.
	info, err := os.Stat(*flagPlot)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunMissingData(t *testing.T) {
	*flagDataDir = filepath.Join(t.TempDir(), "missing")
	*flagOutputDir, *flagCSV, *flagPlot = "", "", ""
	err := run(createDefaultParams())
	require.Error(t, err)
	assert.Equal(t, celebamask.KindFileNotFound, celebamask.KindOf(err))
}

func TestStatistics(t *testing.T) {
	root := writeTestDataset(t, 3)
	config := augment.New(16, 16).WithScale(false).WithMirror(false)
	ds, err := celebamask.NewDataset("test", root, config, 0)
	require.NoError(t, err)

	stats := newStatistics(config)
	_, inputs, labels, err := ds.Yield()
	require.NoError(t, err)
	require.NoError(t, stats.addBatch(batchOfOne(t, inputs), batchOfOne(t, labels)))
	require.Len(t, stats.samples, 1)
	assert.Equal(t, 0, stats.samples[0].Index)
	assert.Equal(t, 20, stats.samples[0].OriginalHeight)
	assert.Equal(t, 24, stats.samples[0].OriginalWidth)
	assert.Zero(t, stats.ignored)

	var total int64
	for _, count := range stats.classPixels {
		total += count
	}
	assert.Equal(t, int64(16*16), total)
	var sum float64
	for _, fraction := range stats.classFractions() {
		sum += fraction
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// Wrong number of tensors.
	require.Error(t, stats.addBatch(inputs[:1], labels))
}
