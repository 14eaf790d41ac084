// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package augment implements the training augmentation of face-parsing samples: an image and its
// per-pixel class label go through the same random spatial transforms, in a fixed order:
//
//  1. Scale jitter (optional): both are resized by a factor drawn from {0.5, 0.6, ..., 1.6}, the
//     image with bilinear interpolation and the label with nearest-neighbor.
//  2. Mean subtraction: the image becomes float32 with the per-channel mean subtracted.
//  3. Padding: bottom and right, up to the crop size. The image is padded with 0 and the label with
//     the ignore label.
//  4. Random crop: the same window is cut from both.
//  5. Channel layout: the image is transposed to `[3, height, width]`.
//  6. Mirror (optional): both are flipped horizontally with probability 1/2.
//
// All random draws come from the *rand.Rand given to Pipeline.Transform, so results are
// reproducible given the seed. The pipeline itself is stateless and safe for concurrent use, as
// long as each goroutine uses its own *rand.Rand.
//
// Example:
//
//	pipeline, err := augment.NewPipeline(augment.New(321, 321).WithMirror(false))
//	if err != nil { ... }
//	rng := rand.New(rand.NewPCG(seed, 0))
//	sample, err := pipeline.Transform(img, label, "0", rng)
package augment

import (
	"image"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/types/tensors"
)

// Params records the random draws and intermediate sizes of one Transform call.
type Params struct {
	// ScaleFactor applied, 1.0 if scale jitter is disabled.
	ScaleFactor float64

	// ScaledHeight and ScaledWidth after the scale jitter.
	ScaledHeight, ScaledWidth int

	// PadHeight and PadWidth added at the bottom and at the right.
	PadHeight, PadWidth int

	// HOffset and WOffset of the crop.
	HOffset, WOffset int

	// Flipped is true if the sample was mirrored.
	Flipped bool
}

// Sample is the output of the pipeline.
type Sample struct {
	// Image shaped (Float32)[3, CropHeight, CropWidth], mean subtracted.
	Image *tensors.Tensor

	// Label shaped (Float32)[CropHeight, CropWidth], holding class ids or the ignore label.
	Label *tensors.Tensor

	// OriginalSize of the image before any transformation: {height, width, channels}.
	OriginalSize []int

	// Name of the sample, passed through.
	Name string

	// Params of the random transformation applied.
	Params Params
}

// Pipeline applies the augmentation configured by a Config. Create it with NewPipeline.
type Pipeline struct {
	config Config
}

// NewPipeline validates the configuration and returns a Pipeline using a copy of it.
func NewPipeline(config *Config) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{config: *config}, nil
}

// Config returns a copy of the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Transform applies the augmentation to the image and its label, drawing all random values from rng.
//
// The image and label must have the same size, otherwise it returns an error wrapping ErrShapeMismatch.
// The returned Sample owns freshly allocated tensors.
func (p *Pipeline) Transform(img image.Image, label *image.Gray, name string, rng *rand.Rand) (*Sample, error) {
	if img == nil || label == nil {
		return nil, errors.Wrapf(ErrDecode, "sample %q: missing image or label", name)
	}
	imgBounds, labelBounds := img.Bounds(), label.Bounds()
	if imgBounds.Empty() {
		return nil, errors.Wrapf(ErrDecode, "sample %q: empty image", name)
	}
	if imgBounds.Dx() != labelBounds.Dx() || imgBounds.Dy() != labelBounds.Dy() {
		return nil, errors.Wrapf(ErrShapeMismatch, "sample %q: image is %dx%d, label is %dx%d", name,
			imgBounds.Dy(), imgBounds.Dx(), labelBounds.Dy(), labelBounds.Dx())
	}
	cfg := &p.config
	height, width := imgBounds.Dy(), imgBounds.Dx()
	params := Params{ScaleFactor: 1.0, ScaledHeight: height, ScaledWidth: width}

	// Scale jitter.
	if cfg.Scale {
		params.ScaleFactor = ScaleFactor(rng)
		params.ScaledHeight, params.ScaledWidth = ScaledSize(height, width, params.ScaleFactor)
		img, label = Resize(img, label, params.ScaledHeight, params.ScaledWidth)
	}

	// Mean subtraction.
	imgFrame := ImageFrame(img, cfg.Mean)
	labelFrame := LabelFrame(label)

	// Pad.
	params.PadHeight = max(cfg.CropHeight-params.ScaledHeight, 0)
	params.PadWidth = max(cfg.CropWidth-params.ScaledWidth, 0)
	imgFrame = imgFrame.Pad(params.PadHeight, params.PadWidth, 0)
	labelFrame = labelFrame.Pad(params.PadHeight, params.PadWidth, float32(cfg.IgnoreLabel))

	// Random crop.
	var err error
	params.HOffset, params.WOffset, err = CropOffsets(rng, imgFrame.Height, imgFrame.Width, cfg.CropHeight, cfg.CropWidth)
	if err != nil {
		return nil, errors.WithMessagef(err, "sample %q", name)
	}
	imgFrame, err = imgFrame.Crop(params.HOffset, params.WOffset, cfg.CropHeight, cfg.CropWidth)
	if err != nil {
		return nil, errors.WithMessagef(err, "sample %q image", name)
	}
	labelFrame, err = labelFrame.Crop(params.HOffset, params.WOffset, cfg.CropHeight, cfg.CropWidth)
	if err != nil {
		return nil, errors.WithMessagef(err, "sample %q label", name)
	}

	// Channel layout: the crops are already fresh buffers, owned by the output.
	imagePix := imgFrame.ChannelsFirst()
	labelPix := labelFrame.Pix

	// Mirror.
	if cfg.Mirror && rng.IntN(2) == 1 {
		params.Flipped = true
		FlipWidth(imagePix, cfg.CropWidth)
		FlipWidth(labelPix, cfg.CropWidth)
	}

	return &Sample{
		Image:        tensors.FromFlatDataAndDimensions(imagePix, 3, cfg.CropHeight, cfg.CropWidth),
		Label:        tensors.FromFlatDataAndDimensions(labelPix, cfg.CropHeight, cfg.CropWidth),
		OriginalSize: []int{height, width, 3},
		Name:         name,
		Params:       params,
	}, nil
}
