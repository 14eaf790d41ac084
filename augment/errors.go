// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import "github.com/pkg/errors"

// Sentinel errors, always returned wrapped with more context. Use errors.Is to check for them.
var (
	// ErrFileNotFound is returned when an image or label file is missing.
	ErrFileNotFound = errors.New("file not found")

	// ErrDecode is returned when an image or label can't be decoded.
	ErrDecode = errors.New("failed to decode")

	// ErrShapeMismatch is returned when the image and its label have different sizes.
	ErrShapeMismatch = errors.New("image and label sizes don't match")

	// ErrInvalidCropConfig is returned for unusable crop configurations, or if a crop doesn't fit the frame.
	ErrInvalidCropConfig = errors.New("invalid crop configuration")
)
