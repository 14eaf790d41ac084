// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package celebamask

import (
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/support/fsutil"
)

// Descriptor locates one sample on disk.
type Descriptor struct {
	ID        int
	ImagePath string
	LabelPath string
	Name      string
}

// Descriptors is the immutable table of samples of a dataset root directory.
type Descriptors struct {
	root string
	list []Descriptor
}

// NewDescriptors enumerates the samples under root: it counts the files N in root/CelebA-HQ-img/ and
// creates descriptors for ids 0 to N-1. A leading "~" in root is expanded to the home directory.
//
// The files themselves are not checked, see Descriptors.Check.
func NewDescriptors(root string) (*Descriptors, error) {
	root, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	imagesDir := filepath.Join(root, ImagesDir)
	isDir, err := fsutil.IsDir(imagesDir)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, errors.Wrapf(augment.ErrFileNotFound, "CelebAMask-HQ images directory %q", imagesDir)
	}
	numImages, err := fsutil.CountFiles(imagesDir, "")
	if err != nil {
		return nil, err
	}
	d := &Descriptors{root: root, list: make([]Descriptor, numImages)}
	for id := range numImages {
		name := strconv.Itoa(id)
		d.list[id] = Descriptor{
			ID:        id,
			ImagePath: filepath.Join(imagesDir, name+ImageExt),
			LabelPath: filepath.Join(root, MasksDir, name+MaskExt),
			Name:      name,
		}
	}
	klog.V(1).Infof("CelebAMask-HQ: %d samples in %q", numImages, root)
	return d, nil
}

// Root directory of the dataset, with "~" expanded.
func (d *Descriptors) Root() string { return d.root }

// Len returns the number of samples.
func (d *Descriptors) Len() int { return len(d.list) }

// Descriptor returns the descriptor of sample i, or an error if i is out of range.
func (d *Descriptors) Descriptor(i int) (Descriptor, error) {
	if i < 0 || i >= len(d.list) {
		return Descriptor{}, errors.Errorf("sample index %d out of range [0, %d)", i, len(d.list))
	}
	return d.list[i], nil
}

// Check that all image and label files exist. It returns a *LoadError for the first missing file.
func (d *Descriptors) Check() error {
	for i, desc := range d.list {
		for _, path := range []string{desc.ImagePath, desc.LabelPath} {
			exists, err := fsutil.Exists(path)
			if err != nil {
				return newLoadError(i, desc.Name, path, err)
			}
			if !exists {
				return newLoadError(i, desc.Name, path, errors.Wrap(augment.ErrFileNotFound, "missing file"))
			}
		}
	}
	return nil
}
