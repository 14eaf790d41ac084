// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package celebamask loads the CelebAMask-HQ face-parsing dataset: face images with a per-pixel
// class mask, laid out on disk as:
//
//	<root>/CelebA-HQ-img/{id}.jpg
//	<root>/mask/{id}.png
//
// with ids from 0 to N-1, where N is the number of files in CelebA-HQ-img/.
//
// Samples are read on demand, decoded, and passed through an augment.Pipeline. Dataset implements
// datasets.Dataset, so it can be wrapped with datasets.Parallel and datasets.Batch:
//
//	ds, err := celebamask.NewDataset("train", "~/work/CelebAMask-HQ", augment.DefaultConfig(), 42)
//	if err != nil { ... }
//	batched := datasets.Batch(datasets.Parallel(ds.WithShuffle(7)), 4, true, false)
//	for {
//		_, inputs, labels, err := batched.Yield()
//		if err == io.EOF { break }
//		...
//	}
package celebamask

const (
	// ImagesDir is the directory, under the dataset root, with the face images.
	ImagesDir = "CelebA-HQ-img"

	// MasksDir is the directory, under the dataset root, with the label masks.
	MasksDir = "mask"

	// ImageExt and MaskExt are the file extensions of images and masks.
	ImageExt = ".jpg"
	MaskExt  = ".png"
)

// ClassNames of the CelebAMask-HQ face-parsing classes, indexed by class id.
var ClassNames = []string{
	"background", "skin", "nose", "eye_g", "l_eye", "r_eye", "l_brow", "r_brow", "l_ear", "r_ear",
	"mouth", "u_lip", "l_lip", "hair", "hat", "ear_r", "neck_l", "neck", "cloth",
}

// NumClasses is the number of face-parsing classes, including the background.
var NumClasses = len(ClassNames)
