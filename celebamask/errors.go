// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celebamask

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gomlx/celebamask/augment"
)

// ErrorKind classifies the failure of loading a sample.
type ErrorKind int

//go:generate go tool enumer -type=ErrorKind -trimprefix=Kind -transform=snake -values -text -output=gen_errorkind_enumer.go errors.go

const (
	KindUnknown ErrorKind = iota
	KindFileNotFound
	KindDecode
	KindShapeMismatch
	KindInvalidCropConfig
)

// KindOf returns the ErrorKind of err, based on the augment sentinel errors it wraps.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, augment.ErrFileNotFound):
		return KindFileNotFound
	case errors.Is(err, augment.ErrDecode):
		return KindDecode
	case errors.Is(err, augment.ErrShapeMismatch):
		return KindShapeMismatch
	case errors.Is(err, augment.ErrInvalidCropConfig):
		return KindInvalidCropConfig
	default:
		return KindUnknown
	}
}

// LoadError is returned when a sample fails to load or transform. It wraps the cause, so errors.Is
// works with the augment sentinel errors.
type LoadError struct {
	// Index and Name of the sample.
	Index int
	Name  string

	// Path of the file that failed, if any.
	Path string

	Kind ErrorKind
	Err  error
}

func newLoadError(index int, name, path string, err error) *LoadError {
	return &LoadError{Index: index, Name: name, Path: path, Kind: KindOf(err), Err: err}
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("celebamask: sample #%d (%q): %s: %v", e.Index, e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("celebamask: sample #%d (%q), file %q: %s: %v", e.Index, e.Name, e.Path, e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *LoadError) Unwrap() error { return e.Err }

// Cause returns the cause, for github.com/pkg/errors.Cause.
func (e *LoadError) Cause() error { return e.Err }
