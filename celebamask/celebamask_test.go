// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celebamask

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	"github.com/chai2010/tiff"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/datasets"
	"github.com/gomlx/celebamask/types/tensors"
)

const (
	fixtureHeight = 20
	fixtureWidth  = 24
	fixtureCrop   = 16
)

func fixtureImage(id, height, width int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10*id + x), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	return img
}

func fixtureLabel(id, height, width int) *image.Gray {
	label := image.NewGray(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			label.SetGray(x, y, color.Gray{Y: uint8((x/4 + y/4 + id) % NumClasses)})
		}
	}
	return label
}

func writeFile(t *testing.T, path string, encode func(w io.Writer) error) {
	var buf bytes.Buffer
	require.NoError(t, encode(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// writeFixture creates a dataset with numSamples images and masks under a temporary root directory.
func writeFixture(t *testing.T, numSamples int) (root string) {
	root = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ImagesDir), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, MasksDir), 0755))
	for id := range numSamples {
		name := strconv.Itoa(id)
		img := fixtureImage(id, fixtureHeight, fixtureWidth)
		writeFile(t, filepath.Join(root, ImagesDir, name+ImageExt), func(w io.Writer) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
		})
		label := fixtureLabel(id, fixtureHeight, fixtureWidth)
		writeFile(t, filepath.Join(root, MasksDir, name+MaskExt), func(w io.Writer) error {
			return png.Encode(w, label)
		})
	}
	return root
}

func testConfig() *augment.Config {
	return augment.New(fixtureCrop, fixtureCrop)
}

func TestDescriptors(t *testing.T) {
	root := writeFixture(t, 3)
	d, err := NewDescriptors(root)
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	require.Equal(t, root, d.Root())

	desc, err := d.Descriptor(2)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{
		ID:        2,
		ImagePath: filepath.Join(root, "CelebA-HQ-img", "2.jpg"),
		LabelPath: filepath.Join(root, "mask", "2.png"),
		Name:      "2",
	}, desc)

	_, err = d.Descriptor(3)
	require.Error(t, err)
	_, err = d.Descriptor(-1)
	require.Error(t, err)

	require.NoError(t, d.Check())
	require.NoError(t, os.Remove(desc.LabelPath))
	err = d.Check()
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 2, loadErr.Index)
	assert.Equal(t, KindFileNotFound, loadErr.Kind)
	assert.Equal(t, desc.LabelPath, loadErr.Path)
	require.ErrorIs(t, err, augment.ErrFileNotFound)
}

func TestDescriptorsMissingRoot(t *testing.T) {
	_, err := NewDescriptors(filepath.Join(t.TempDir(), "nowhere"))
	require.ErrorIs(t, err, augment.ErrFileNotFound)
}

func TestLoadLabel(t *testing.T) {
	dir := t.TempDir()
	want := fixtureLabel(1, 5, 7)

	// Gray PNG.
	grayPath := filepath.Join(dir, "gray.png")
	writeFile(t, grayPath, func(w io.Writer) error { return png.Encode(w, want) })
	got, err := LoadLabel(grayPath)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)

	// Paletted PNG: the palette index is the class id.
	palette := make(color.Palette, NumClasses)
	for ii := range palette {
		palette[ii] = color.RGBA{R: uint8(255 - ii), G: uint8(ii * 13), B: 7, A: 255}
	}
	paletted := image.NewPaletted(want.Rect, palette)
	copy(paletted.Pix, want.Pix)
	palettedPath := filepath.Join(dir, "paletted.png")
	writeFile(t, palettedPath, func(w io.Writer) error { return png.Encode(w, paletted) })
	got, err = LoadLabel(palettedPath)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)

	// Color PNG: the red channel is used.
	colored := image.NewNRGBA(want.Rect)
	for ii, v := range want.Pix {
		colored.Pix[4*ii] = v
		colored.Pix[4*ii+1] = 100
		colored.Pix[4*ii+2] = 200
		colored.Pix[4*ii+3] = 255
	}
	coloredPath := filepath.Join(dir, "colored.png")
	writeFile(t, coloredPath, func(w io.Writer) error { return png.Encode(w, colored) })
	got, err = LoadLabel(coloredPath)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)

	// TIFF.
	tiffPath := filepath.Join(dir, "mask.tiff")
	writeFile(t, tiffPath, func(w io.Writer) error { return tiff.Encode(w, want, nil) })
	got, err = LoadLabel(tiffPath)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestLoadLabelDepthAndAlpha(t *testing.T) {
	dir := t.TempDir()
	ids := []uint8{0, 5, 10, 15}
	rect := image.Rect(0, 0, len(ids), 1)

	// 16-bit gray mask with small class ids.
	gray16 := image.NewGray16(rect)
	for x, id := range ids {
		gray16.SetGray16(x, 0, color.Gray16{Y: uint16(id)})
	}
	gray16Path := filepath.Join(dir, "gray16.png")
	writeFile(t, gray16Path, func(w io.Writer) error { return png.Encode(w, gray16) })
	got, err := LoadLabel(gray16Path)
	require.NoError(t, err)
	assert.Equal(t, ids, got.Pix)

	// 16-bit values that don't fit a class id.
	gray16.SetGray16(2, 0, color.Gray16{Y: 300})
	wideIDsPath := filepath.Join(dir, "wide_ids.png")
	writeFile(t, wideIDsPath, func(w io.Writer) error { return png.Encode(w, gray16) })
	_, err = LoadLabel(wideIDsPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, augment.ErrDecode), "got %+v", err)
	assert.Equal(t, KindDecode, KindOf(err))

	// Translucent color mask: the red channel is not scaled by alpha.
	translucent := image.NewNRGBA(rect)
	for x, id := range ids {
		translucent.SetNRGBA(x, 0, color.NRGBA{R: id, G: 3, B: 4, A: 128})
	}
	translucentPath := filepath.Join(dir, "translucent.png")
	writeFile(t, translucentPath, func(w io.Writer) error { return png.Encode(w, translucent) })
	got, err = LoadLabel(translucentPath)
	require.NoError(t, err)
	assert.Equal(t, ids, got.Pix)

	// Other image types go through the non-premultiplied color model.
	deep := image.NewNRGBA64(rect)
	for x, id := range ids {
		deep.SetNRGBA64(x, 0, color.NRGBA64{R: uint16(id) * 257, A: 0x8000})
	}
	got, err = toLabel(deep)
	require.NoError(t, err)
	assert.Equal(t, ids, got.Pix)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadImage(filepath.Join(dir, "missing.jpg"))
	require.ErrorIs(t, err, augment.ErrFileNotFound)
	assert.Equal(t, KindFileNotFound, KindOf(err))

	corrupted := filepath.Join(dir, "corrupted.jpg")
	require.NoError(t, os.WriteFile(corrupted, []byte("not a jpeg"), 0644))
	_, err = LoadImage(corrupted)
	require.ErrorIs(t, err, augment.ErrDecode)
	assert.Equal(t, KindDecode, KindOf(err))

	_, err = LoadLabel(corrupted)
	require.ErrorIs(t, err, augment.ErrDecode)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "file_not_found", KindFileNotFound.String())
	assert.Equal(t, "invalid_crop_config", KindInvalidCropConfig.String())
	kind, err := ErrorKindString("shape_mismatch")
	require.NoError(t, err)
	assert.Equal(t, KindShapeMismatch, kind)
	assert.Len(t, ErrorKindValues(), 5)
	assert.Equal(t, KindUnknown, KindOf(errors.New("something else")))
}

// collect iterates over ds until io.EOF and returns the yielded images by sample index.
func collect(t *testing.T, ds datasets.Dataset) (order []int, images map[int]*tensors.Tensor) {
	images = make(map[int]*tensors.Tensor)
	for {
		_, inputs, labels, err := ds.Yield()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
		require.Len(t, inputs, 3)
		require.Len(t, labels, 1)
		index := int(tensors.ToScalar[int32](inputs[1]))
		order = append(order, index)
		images[index] = inputs[0]
	}
}

func TestDatasetSequential(t *testing.T) {
	root := writeFixture(t, 5)
	ds, err := NewDataset("test", root, testConfig(), 42)
	require.NoError(t, err)
	require.Equal(t, "test", ds.Name())
	require.Equal(t, 5, ds.Len())

	_, inputs, labels, err := ds.Yield()
	require.NoError(t, err)
	assert.Equal(t, []int{3, fixtureCrop, fixtureCrop}, inputs[0].Shape().Dimensions)
	assert.Equal(t, int32(0), tensors.ToScalar[int32](inputs[1]))
	assert.Equal(t, []int32{fixtureHeight, fixtureWidth, 3}, tensors.CopyFlatData[int32](inputs[2]))
	assert.Equal(t, []int{fixtureCrop, fixtureCrop}, labels[0].Shape().Dimensions)

	order, _ := collect(t, ds)
	require.Equal(t, []int{1, 2, 3, 4}, order)
	_, _, _, err = ds.Yield()
	require.Equal(t, io.EOF, err)

	ds.Reset()
	require.Equal(t, uint64(1), ds.Epoch())
	order, _ = collect(t, ds)
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestDatasetDeterministic(t *testing.T) {
	root := writeFixture(t, 3)
	ds, err := NewDataset("test", root, testConfig(), 7)
	require.NoError(t, err)
	s1, err := ds.Item(1, ds.SampleRNG(1, 0))
	require.NoError(t, err)
	s2, err := ds.Item(1, ds.SampleRNG(1, 0))
	require.NoError(t, err)
	require.Equal(t, "1", s1.Name)
	require.Equal(t, s1.Params, s2.Params)
	require.True(t, s1.Image.Equal(s2.Image))
	require.True(t, s1.Label.Equal(s2.Label))

	_, err = ds.Item(10, ds.SampleRNG(10, 0))
	require.Error(t, err)
}

func TestDatasetShuffle(t *testing.T) {
	root := writeFixture(t, 8)
	ds, err := NewDataset("test", root, testConfig(), 1)
	require.NoError(t, err)
	ds.WithShuffle(3)
	for range 3 {
		order, _ := collect(t, ds)
		sorted := slices.Clone(order)
		slices.Sort(sorted)
		require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, sorted)
		ds.Reset()
	}
}

func TestDatasetParallelMatchesSequential(t *testing.T) {
	root := writeFixture(t, 12)
	sequential, err := NewDataset("seq", root, testConfig(), 5)
	require.NoError(t, err)
	_, wantImages := collect(t, sequential)

	ds, err := NewDataset("par", root, testConfig(), 5)
	require.NoError(t, err)
	parallel := datasets.CustomParallel(ds).Parallelism(4).Buffer(4).Start()
	defer parallel.Done()
	order, gotImages := collect(t, parallel)
	require.Len(t, order, 12)
	for index, want := range wantImages {
		require.True(t, want.Equal(gotImages[index]), "sample %d differs", index)
	}
}

func TestDatasetBatched(t *testing.T) {
	root := writeFixture(t, 5)
	ds, err := NewDataset("test", root, testConfig(), 5)
	require.NoError(t, err)
	parallel := datasets.Parallel(ds.WithShuffle(11))
	defer parallel.Done()
	batched := datasets.Batch(parallel, 2, true, false)
	var sizes []int
	seen := make(map[int32]bool)
	for {
		_, inputs, labels, err := batched.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n := inputs[0].Shape().Dim(0)
		sizes = append(sizes, n)
		assert.Equal(t, []int{n, 3, fixtureCrop, fixtureCrop}, inputs[0].Shape().Dimensions)
		assert.Equal(t, []int{n}, inputs[1].Shape().Dimensions)
		assert.Equal(t, []int{n, 3}, inputs[2].Shape().Dimensions)
		assert.Equal(t, []int{n, fixtureCrop, fixtureCrop}, labels[0].Shape().Dimensions)
		for _, index := range tensors.CopyFlatData[int32](inputs[1]) {
			seen[index] = true
		}
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Len(t, seen, 5)

	dropLast := datasets.Batch(parallel, 2, true, true)
	dropLast.Reset()
	count := 0
	for {
		_, _, _, err := dropLast.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestDatasetInfinite(t *testing.T) {
	root := writeFixture(t, 3)
	ds, err := NewDataset("test", root, testConfig(), 5)
	require.NoError(t, err)
	take := datasets.Take(ds.Infinite(true), 10)
	order, _ := collect(t, take)
	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2, 0}, order)
	require.Equal(t, uint64(3), ds.Epoch())
}

func TestDatasetErrors(t *testing.T) {
	root := writeFixture(t, 4)
	// Sample 1: missing mask.
	require.NoError(t, os.Remove(filepath.Join(root, MasksDir, "1.png")))
	// Sample 2: mask with a different size.
	writeFile(t, filepath.Join(root, MasksDir, "2.png"), func(w io.Writer) error {
		return png.Encode(w, fixtureLabel(2, fixtureHeight+1, fixtureWidth))
	})
	ds, err := NewDataset("test", root, testConfig(), 5)
	require.NoError(t, err)

	_, _, _, err = ds.Yield()
	require.NoError(t, err)

	_, _, _, err = ds.Yield()
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 1, loadErr.Index)
	assert.Equal(t, "1", loadErr.Name)
	assert.Equal(t, KindFileNotFound, loadErr.Kind)
	require.ErrorIs(t, err, augment.ErrFileNotFound)

	_, _, _, err = ds.Yield()
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 2, loadErr.Index)
	assert.Equal(t, KindShapeMismatch, loadErr.Kind)
	require.ErrorIs(t, err, augment.ErrShapeMismatch)

	// Errors stop the parallel harness.
	ds.Reset()
	parallel := datasets.CustomParallel(ds).Parallelism(2).Start()
	defer parallel.Done()
	for {
		_, _, _, err = parallel.Yield()
		if err != nil {
			break
		}
	}
	require.NotEqual(t, io.EOF, err)
	require.True(t, errors.As(err, &loadErr))

	_, err = NewDataset("bad", root, augment.New(0, 10), 0)
	require.ErrorIs(t, err, augment.ErrInvalidCropConfig)
}
