// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import (
	"github.com/pkg/errors"
)

const (
	// DefaultCropSize is the default height and width of the crops.
	DefaultCropSize = 321

	// DefaultIgnoreLabel marks label pixels that carry no supervision, e.g. the padded area.
	DefaultIgnoreLabel = 255

	// MaxIgnoreLabel is the largest ignore label value: masks are stored with 8 bits.
	MaxIgnoreLabel = 255
)

// DefaultMean is the per-channel (R, G, B) mean subtracted from images, in the 0-255 scale.
var DefaultMean = [3]float64{128, 128, 128}

// Config of the augmentation pipeline. Create it with New or DefaultConfig, and
// configure it with the cascading With* methods.
//
// It is read-only once a Pipeline is created from it.
type Config struct {
	// CropHeight and CropWidth of the output samples.
	CropHeight, CropWidth int

	// Mean subtracted from each channel (R, G, B) of the image, in the 0-255 scale.
	Mean [3]float64

	// Scale enables the random scale jitter, with factors from 0.5 to 1.6.
	Scale bool

	// Mirror enables random horizontal flips.
	Mirror bool

	// IgnoreLabel is the label value used for padding. It must be in the range [0, 255].
	IgnoreLabel int
}

// New returns a configuration for crops of the given size, with the other values set to their defaults:
// mean (128, 128, 128), scale jitter and mirroring enabled and ignore label 255.
func New(cropHeight, cropWidth int) *Config {
	return &Config{
		CropHeight:  cropHeight,
		CropWidth:   cropWidth,
		Mean:        DefaultMean,
		Scale:       true,
		Mirror:      true,
		IgnoreLabel: DefaultIgnoreLabel,
	}
}

// DefaultConfig returns a configuration with 321x321 crops and the default values. See New.
func DefaultConfig() *Config {
	return New(DefaultCropSize, DefaultCropSize)
}

// WithMean sets the per-channel mean subtracted from images.
// It returns the Config, so configuration calls can be cascaded.
func (c *Config) WithMean(r, g, b float64) *Config {
	c.Mean = [3]float64{r, g, b}
	return c
}

// WithScale enables or disables the random scale jitter.
// It returns the Config, so configuration calls can be cascaded.
func (c *Config) WithScale(enabled bool) *Config {
	c.Scale = enabled
	return c
}

// WithMirror enables or disables the random horizontal flip.
// It returns the Config, so configuration calls can be cascaded.
func (c *Config) WithMirror(enabled bool) *Config {
	c.Mirror = enabled
	return c
}

// WithIgnoreLabel sets the value used to pad labels.
// It returns the Config, so configuration calls can be cascaded.
func (c *Config) WithIgnoreLabel(value int) *Config {
	c.IgnoreLabel = value
	return c
}

// Validate returns an error wrapping ErrInvalidCropConfig if the configuration can't be used.
func (c *Config) Validate() error {
	if c.CropHeight <= 0 || c.CropWidth <= 0 {
		return errors.Wrapf(ErrInvalidCropConfig, "crop size must be positive, got %dx%d", c.CropHeight, c.CropWidth)
	}
	if c.IgnoreLabel < 0 || c.IgnoreLabel > MaxIgnoreLabel {
		return errors.Wrapf(ErrInvalidCropConfig, "ignore label must be in the range [0, %d], got %d", MaxIgnoreLabel, c.IgnoreLabel)
	}
	return nil
}
