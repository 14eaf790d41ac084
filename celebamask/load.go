// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celebamask

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/augment"
)

// decodeFile decodes the image at path, choosing the decoder by the file extension.
// Unknown extensions fall back to the registered image formats.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(augment.ErrFileNotFound, "%q", path)
		}
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer func() { _ = f.Close() }()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	default:
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, errors.Wrapf(augment.ErrDecode, "%q: %v", path, err)
	}
	if img.Bounds().Empty() {
		return nil, errors.Wrapf(augment.ErrDecode, "%q: empty image", path)
	}
	return img, nil
}

// LoadImage reads and decodes a face image (JPEG, PNG or TIFF).
//
// Errors wrap augment.ErrFileNotFound or augment.ErrDecode.
func LoadImage(path string) (image.Image, error) {
	return decodeFile(path)
}

// LoadLabel reads and decodes a label mask (PNG, JPEG or TIFF), where each pixel holds a class id.
//
// Masks are expected to be single-channel. Paletted masks use the palette index as the class id, and
// color masks use the red channel, not premultiplied by alpha. 16-bit gray masks are accepted as long
// as every value fits in 8 bits, otherwise it fails with augment.ErrDecode.
//
// Errors wrap augment.ErrFileNotFound or augment.ErrDecode.
func LoadLabel(path string) (*image.Gray, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	label, err := toLabel(img)
	if err != nil {
		return nil, errors.WithMessagef(err, "%q", path)
	}
	return label, nil
}

// toLabel converts a decoded mask to *image.Gray holding the class ids.
func toLabel(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	switch typed := img.(type) {
	case *image.Gray:
		return typed, nil
	case *image.Paletted:
		gray := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			src := typed.Pix[typed.PixOffset(b.Min.X, y):]
			dst := gray.Pix[gray.PixOffset(b.Min.X, y):]
			copy(dst[:b.Dx()], src[:b.Dx()])
		}
		return gray, nil
	case *image.Gray16:
		gray := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v := typed.Gray16At(x, y).Y
				if v > math.MaxUint8 {
					return nil, errors.Wrapf(augment.ErrDecode, "16-bit mask value %d at (%d, %d) is not a class id", v, x, y)
				}
				gray.Pix[gray.PixOffset(x, y)] = uint8(v)
			}
		}
		return gray, nil
	case *image.NRGBA:
		return redChannel(b, typed.Pix, typed.PixOffset), nil
	case *image.RGBA:
		// Red is stored premultiplied: only fully opaque masks are exact.
		return redChannel(b, typed.Pix, typed.PixOffset), nil
	}
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			gray.Pix[gray.PixOffset(x, y)] = c.R
		}
	}
	return gray, nil
}

// redChannel copies the first byte of each 4-byte pixel.
func redChannel(b image.Rectangle, pix []uint8, pixOffset func(x, y int) int) *image.Gray {
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := pix[pixOffset(b.Min.X, y):]
		dst := gray.Pix[gray.PixOffset(b.Min.X, y):]
		for x := range b.Dx() {
			dst[x] = src[4*x]
		}
	}
	return gray
}
