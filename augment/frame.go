// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import (
	"image"
	"math/rand/v2"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Frame is a float32 pixel buffer in the layout `[Height, Width, Channels]` (channels-last), the
// representation used between the mean subtraction and the channel layout stages.
type Frame struct {
	Height, Width, Channels int

	// Pix holds Height*Width*Channels values.
	Pix []float32
}

// NewFrame returns a frame with all values set to fill.
func NewFrame(height, width, channels int, fill float32) *Frame {
	f := &Frame{Height: height, Width: width, Channels: channels, Pix: make([]float32, height*width*channels)}
	if fill != 0 {
		for ii := range f.Pix {
			f.Pix[ii] = fill
		}
	}
	return f
}

// ImageFrame converts the image to a 3-channel float32 frame, subtracting mean[c] from each channel (R, G, B).
// Alpha is dropped.
func ImageFrame(img image.Image, mean [3]float64) *Frame {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = imaging.Clone(img)
	}
	height, width := nrgba.Rect.Dy(), nrgba.Rect.Dx()
	f := NewFrame(height, width, 3, 0)
	meanF32 := [3]float32{float32(mean[0]), float32(mean[1]), float32(mean[2])}
	pos := 0
	for y := range height {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+4*width]
		for x := range width {
			for c := range 3 {
				f.Pix[pos] = float32(row[4*x+c]) - meanF32[c]
				pos++
			}
		}
	}
	return f
}

// LabelFrame converts the label to a 1-channel float32 frame holding the class ids.
func LabelFrame(label *image.Gray) *Frame {
	b := label.Bounds()
	f := NewFrame(b.Dy(), b.Dx(), 1, 0)
	pos := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		offset := label.PixOffset(b.Min.X, y)
		for _, v := range label.Pix[offset : offset+b.Dx()] {
			f.Pix[pos] = float32(v)
			pos++
		}
	}
	return f
}

// Pad extends the frame with padHeight rows at the bottom and padWidth columns at the right, filled with value.
//
// If both paddings are 0 (or negative) it returns the frame itself, unchanged.
func (f *Frame) Pad(padHeight, padWidth int, value float32) *Frame {
	padHeight, padWidth = max(padHeight, 0), max(padWidth, 0)
	if padHeight == 0 && padWidth == 0 {
		return f
	}
	padded := NewFrame(f.Height+padHeight, f.Width+padWidth, f.Channels, value)
	srcRowLen := f.Width * f.Channels
	dstRowLen := padded.Width * padded.Channels
	for y := range f.Height {
		copy(padded.Pix[y*dstRowLen:y*dstRowLen+srcRowLen], f.Pix[y*srcRowLen:(y+1)*srcRowLen])
	}
	return padded
}

// CropOffsets draws the top-left corner of a cropHeight x cropWidth crop in a height x width frame:
// hOffset is drawn uniformly from [0, height-cropHeight] first, then wOffset from [0, width-cropWidth].
//
// It returns an error wrapping ErrInvalidCropConfig if the crop doesn't fit.
func CropOffsets(rng *rand.Rand, height, width, cropHeight, cropWidth int) (hOffset, wOffset int, err error) {
	if cropHeight <= 0 || cropWidth <= 0 || height < cropHeight || width < cropWidth {
		err = errors.Wrapf(ErrInvalidCropConfig, "crop of %dx%d doesn't fit in frame of %dx%d",
			cropHeight, cropWidth, height, width)
		return
	}
	hOffset = rng.IntN(height - cropHeight + 1)
	wOffset = rng.IntN(width - cropWidth + 1)
	return
}

// Crop returns a new frame with the cropHeight x cropWidth window starting at (hOffset, wOffset).
// The returned frame never shares its buffer with f.
func (f *Frame) Crop(hOffset, wOffset, cropHeight, cropWidth int) (*Frame, error) {
	if hOffset < 0 || wOffset < 0 || cropHeight <= 0 || cropWidth <= 0 ||
		hOffset+cropHeight > f.Height || wOffset+cropWidth > f.Width {
		return nil, errors.Wrapf(ErrInvalidCropConfig, "crop of %dx%d at (%d, %d) out of frame of %dx%d",
			cropHeight, cropWidth, hOffset, wOffset, f.Height, f.Width)
	}
	cropped := NewFrame(cropHeight, cropWidth, f.Channels, 0)
	rowLen := cropWidth * f.Channels
	for y := range cropHeight {
		start := ((hOffset+y)*f.Width + wOffset) * f.Channels
		copy(cropped.Pix[y*rowLen:(y+1)*rowLen], f.Pix[start:start+rowLen])
	}
	return cropped, nil
}

// ChannelsFirst returns a new buffer with the frame's values in the layout `[Channels, Height, Width]`.
func (f *Frame) ChannelsFirst() []float32 {
	if f.Channels == 1 {
		return slices.Clone(f.Pix)
	}
	planeSize := f.Height * f.Width
	out := make([]float32, len(f.Pix))
	for pixel := range planeSize {
		for c := range f.Channels {
			out[c*planeSize+pixel] = f.Pix[pixel*f.Channels+c]
		}
	}
	return out
}

// FlipWidth reverses, in place, each row of width values of pix. It works for any layout where the
// width is the last axis, e.g. `[Height, Width]` and `[Channels, Height, Width]`.
func FlipWidth(pix []float32, width int) {
	for start := 0; start+width <= len(pix); start += width {
		slices.Reverse(pix[start : start+width])
	}
}
