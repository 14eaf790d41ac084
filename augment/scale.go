// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

// NumScaleSteps is the number of distinct scale factors: 0.5, 0.6, ..., 1.6.
const NumScaleSteps = 12

// ScaleFactor draws a scale factor uniformly from {0.5, 0.6, ..., 1.6}.
func ScaleFactor(rng *rand.Rand) float64 {
	return 0.5 + float64(rng.IntN(NumScaleSteps))/10
}

// ScaledSize returns the size of a height x width image scaled by factor, rounded to the nearest
// integer, and at least 1.
func ScaledSize(height, width int, factor float64) (scaledHeight, scaledWidth int) {
	scaledHeight = max(int(math.Round(factor*float64(height))), 1)
	scaledWidth = max(int(math.Round(factor*float64(width))), 1)
	return
}

// Resize the image and its label to height x width. The image is resampled with bilinear
// interpolation and the label with nearest-neighbor, so it only holds class ids present in the
// original label.
//
// When shrinking, the bilinear filter is widened by the scale factor (antialiased), so it averages
// more than the 2 nearest source pixels per axis. Enlarging is plain bilinear.
func Resize(img image.Image, label *image.Gray, height, width int) (*image.NRGBA, *image.Gray) {
	resizedImg := imaging.Resize(img, width, height, imaging.Linear)
	resizedLabel := imaging.Resize(label, width, height, imaging.NearestNeighbor)

	// Nearest-neighbor copies pixels exactly, so R=G=B holds the class id.
	grayLabel := image.NewGray(image.Rect(0, 0, width, height))
	for ii := range grayLabel.Pix {
		grayLabel.Pix[ii] = resizedLabel.Pix[4*ii]
	}
	return resizedImg, grayLabel
}
