// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package images provides functions to transform images back and forth from tensors.
//
// ToTensor and ToImage work with the channels-last layout `[height, width, channels]` (or batches of it).
// ChannelsFirstToImage and LabelToGray convert back the channels-first, mean subtracted, samples produced by
// the augment package, which is handy to visually inspect them.
package images

import (
	"image"
	"image/color"
	"math"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/types/shapes"
	"github.com/gomlx/celebamask/types/tensors"
)

// ToTensorConfig holds the configuration returned by the ToTensor function. Once
// configured, use Single or Batch to actually convert.
type ToTensorConfig struct {
	dtype    dtypes.DType
	channels int
	maxValue float64
}

// ToTensor converts an image (or batch) to a tensor.
//
// It returns a configuration object that can be further configured. Once set, use Single or Batch
// methods to convert an image or a batch of images.
func ToTensor(dtype dtypes.DType) *ToTensorConfig {
	tt := &ToTensorConfig{dtype: dtype, channels: 3}
	if dtype.IsFloat() {
		tt.maxValue = 1.0
	} else {
		tt.maxValue = 255.0
	}
	return tt
}

// WithAlpha configures ToTensorConfig object to include the alpha channel in the conversion,
// so the converted tensor will have 4 channels. The default is dropping the alpha channel.
//
// It returns the ToTensorConfig object, so configuration calls can be cascaded.
func (tt *ToTensorConfig) WithAlpha() *ToTensorConfig {
	tt.channels = 4
	return tt
}

// MaxValue sets the MaxValue of each channel. It defaults to 1.0 for float dtypes (Float32
// and Float64) and 255 for integer types.
//
// It returns the ToTensorConfig object, so configuration calls can be cascaded.
func (tt *ToTensorConfig) MaxValue(v float64) *ToTensorConfig {
	tt.maxValue = v
	return tt
}

// Single converts the given img to a tensor, using the ToTensorConfig.
//
// It returns a 3D tensor, shaped as `[height, width, channels]`.
func (tt *ToTensorConfig) Single(img image.Image) *tensors.Tensor {
	return tt.toTensor([]image.Image{img}, false)
}

// Batch converts the given images to a tensor, using the ToTensorConfig.
// All images must have the same size.
//
// It returns a 4D tensor, shaped as `[batch_size, height, width, channels]`.
func (tt *ToTensorConfig) Batch(images []image.Image) *tensors.Tensor {
	return tt.toTensor(images, true)
}

func (tt *ToTensorConfig) toTensor(images []image.Image, batch bool) (t *tensors.Tensor) {
	if len(images) == 0 {
		exceptions.Panicf("cannot convert empty list of images to tensor")
	}
	bounds := images[0].Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	dims := []int{height, width, tt.channels}
	if batch {
		dims = append([]int{len(images)}, dims...)
	}
	t = tensors.FromShape(shapes.Make(tt.dtype, dims...))
	t.MutableFlatData(func(flatAny any) {
		flatV := reflect.ValueOf(flatAny)
		elemType := flatV.Type().Elem()
		pos := 0
		for imgIdx, img := range images {
			b := img.Bounds()
			if b.Dx() != width || b.Dy() != height {
				exceptions.Panicf("image #%d has size %dx%d, but image #0 has size %dx%d", imgIdx, b.Dx(), b.Dy(), width, height)
			}
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
					values := [4]uint8{c.R, c.G, c.B, c.A}
					for ch := range tt.channels {
						f := float64(values[ch]) / 255.0 * tt.maxValue
						if !tt.dtype.IsFloat() {
							f = math.Round(f)
						}
						flatV.Index(pos).Set(reflect.ValueOf(f).Convert(elemType))
						pos++
					}
				}
			}
		}
	})
	return
}

// ToImageConfig holds the configuration returned by the ToImage function. Once
// configured, use Single or Batch to actually convert a tensor to image(s).
type ToImageConfig struct {
	maxValue float64
}

// ToImage returns a configuration that can be used to convert tensors to Images.
// Use Single or Batch to convert single images or batch of images at once.
//
// It only generates `*image.NRGBA` images.
func ToImage() *ToImageConfig {
	return &ToImageConfig{}
}

// MaxValue sets the MaxValue of each channel. It defaults to 1.0 for float dtypes (Float32
// and Float64) and 255 for integer types.
//
// It returns the ToImageConfig object, so configuration calls can be cascaded.
func (ti *ToImageConfig) MaxValue(v float64) *ToImageConfig {
	ti.maxValue = v
	return ti
}

// Single converts the given 3D tensor shaped as `[height, width, channels]` to an image.
func (ti *ToImageConfig) Single(t *tensors.Tensor) (*image.NRGBA, error) {
	if t.Rank() != 3 {
		return nil, errors.Errorf("ToImage().Single() requires a tensor shaped [height, width, channels], got %s", t.Shape())
	}
	imgs, err := ti.toImages(t)
	if err != nil {
		return nil, err
	}
	return imgs[0], nil
}

// Batch converts the given 4D tensor shaped as `[batch_size, height, width, channels]` to a collection of images.
func (ti *ToImageConfig) Batch(t *tensors.Tensor) ([]*image.NRGBA, error) {
	if t.Rank() != 4 {
		return nil, errors.Errorf("ToImage().Batch() requires a tensor shaped [batch_size, height, width, channels], got %s", t.Shape())
	}
	return ti.toImages(t)
}

func (ti *ToImageConfig) toImages(t *tensors.Tensor) (images []*image.NRGBA, err error) {
	dims := t.Shape().Dimensions
	numImages := 1
	if len(dims) == 4 {
		numImages = dims[0]
		dims = dims[1:]
	}
	height, width, channels := dims[0], dims[1], dims[2]
	if channels < 1 || channels > 4 {
		return nil, errors.Errorf("ToImage() supports 1 to 4 channels, got shape %s", t.Shape())
	}
	maxValue := ti.maxValue
	if maxValue == 0 {
		if t.DType().IsFloat() {
			maxValue = 1.0
		} else {
			maxValue = 255.0
		}
	}
	images = make([]*image.NRGBA, 0, numImages)
	t.ConstFlatData(func(flatAny any) {
		flatV := reflect.ValueOf(flatAny)
		pos := 0
		for range numImages {
			img := image.NewNRGBA(image.Rect(0, 0, width, height))
			for h := range height {
				for w := range width {
					pixel := img.Pix[h*img.Stride+w*4 : h*img.Stride+w*4+4]
					for d := range channels {
						pixel[d] = clampToUint8(255 * toFloat(flatV.Index(pos)) / maxValue)
						pos++
					}
					if channels == 1 {
						pixel[1], pixel[2] = pixel[0], pixel[0]
					}
					if channels < 4 {
						pixel[3] = 255
					}
				}
			}
			images = append(images, img)
		}
	})
	return images, nil
}

// ChannelsFirstToImage converts a mean-subtracted float32 image tensor shaped `[3, height, width]` back to
// an image, adding back the given per-channel mean (in R, G, B order).
func ChannelsFirstToImage(t *tensors.Tensor, mean [3]float64) (*image.NRGBA, error) {
	if t.DType() != dtypes.Float32 || t.Rank() != 3 || t.Shape().Dim(0) != 3 {
		return nil, errors.Errorf("ChannelsFirstToImage requires a (Float32)[3 height width] tensor, got %s", t.Shape())
	}
	height, width := t.Shape().Dim(1), t.Shape().Dim(2)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	planeSize := height * width
	tensors.ConstFlatData(t, func(flat []float32) {
		for h := range height {
			for w := range width {
				pixel := img.Pix[h*img.Stride+w*4 : h*img.Stride+w*4+4]
				for c := range 3 {
					pixel[c] = clampToUint8(float64(flat[c*planeSize+h*width+w]) + mean[c])
				}
				pixel[3] = 255
			}
		}
	})
	return img, nil
}

// LabelToGray converts a float32 label tensor shaped `[height, width]` to a grayscale image, where each
// pixel holds the class index (or the ignore label).
func LabelToGray(t *tensors.Tensor) (*image.Gray, error) {
	if t.DType() != dtypes.Float32 || t.Rank() != 2 {
		return nil, errors.Errorf("LabelToGray requires a (Float32)[height width] tensor, got %s", t.Shape())
	}
	height, width := t.Shape().Dim(0), t.Shape().Dim(1)
	img := image.NewGray(image.Rect(0, 0, width, height))
	tensors.ConstFlatData(t, func(flat []float32) {
		for h := range height {
			for w := range width {
				img.Pix[h*img.Stride+w] = clampToUint8(float64(flat[h*width+w]))
			}
		}
	})
	return img, nil
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanFloat():
		return v.Float()
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	exceptions.Panicf("cannot convert value of type %s to image", v.Type())
	return 0
}

func clampToUint8(f float64) uint8 {
	f = math.Round(f)
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}
