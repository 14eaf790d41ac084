// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"k8s.io/klog/v2"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/types/tensors"
	"github.com/gomlx/celebamask/types/tensors/images"
)

// classColors used to paint each class of the label maps.
var classColors = []color.NRGBA{
	{0, 0, 0, 255}, {204, 0, 0, 255}, {76, 153, 0, 255}, {204, 204, 0, 255}, {51, 51, 255, 255},
	{204, 0, 204, 255}, {0, 255, 255, 255}, {255, 204, 204, 255}, {102, 51, 0, 255}, {255, 0, 0, 255},
	{102, 204, 0, 255}, {255, 255, 0, 255}, {0, 0, 153, 255}, {0, 0, 204, 255}, {255, 51, 153, 255},
	{0, 204, 204, 255}, {0, 51, 0, 255}, {255, 153, 51, 255}, {0, 204, 0, 255},
}

// ignoreColor is used for the ignore label and any value that is not a class.
var ignoreColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// overlayOpacity of the label colors drawn over the image.
const overlayOpacity = 128

// previewWriter writes PNG previews of the first samples yielded: each preview has three panels side by
// side, the augmented image, its colored label map and the label map drawn over the image.
type previewWriter struct {
	dir                   string
	maxPreviews           int
	count                 int
	mean                  [3]float64
	ignoreLabel           uint8
	cropHeight, cropWidth int
}

func newPreviewWriter(dir string, maxPreviews int, config *augment.Config) (*previewWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create previews directory %q", dir)
	}
	return &previewWriter{
		dir:         dir,
		maxPreviews: maxPreviews,
		mean:        config.Mean,
		ignoreLabel: uint8(config.IgnoreLabel),
		cropHeight:  config.CropHeight,
		cropWidth:   config.CropWidth,
	}, nil
}

// addBatch writes previews for the samples in the batch, until maxPreviews have been written.
func (pw *previewWriter) addBatch(inputs, labels []*tensors.Tensor) error {
	if pw.count >= pw.maxPreviews {
		return nil
	}
	batchSize := inputs[0].Shape().Dim(0)
	indices := tensors.CopyFlatData[int32](inputs[1])
	imagesFlat := tensors.CopyFlatData[float32](inputs[0])
	labelsFlat := tensors.CopyFlatData[float32](labels[0])
	imageSize := len(imagesFlat) / batchSize
	labelSize := len(labelsFlat) / batchSize
	for ii := 0; ii < batchSize && pw.count < pw.maxPreviews; ii++ {
		var imageT, labelT *tensors.Tensor
		err := exceptions.TryCatch[error](func() {
			imageT = tensors.FromFlatDataAndDimensions(imagesFlat[ii*imageSize:(ii+1)*imageSize], 3, pw.cropHeight, pw.cropWidth)
			labelT = tensors.FromFlatDataAndDimensions(labelsFlat[ii*labelSize:(ii+1)*labelSize], pw.cropHeight, pw.cropWidth)
		})
		if err != nil {
			return errors.WithMessagef(err, "batch doesn't match the crop size %dx%d", pw.cropHeight, pw.cropWidth)
		}
		img, err := images.ChannelsFirstToImage(imageT, pw.mean)
		if err != nil {
			return err
		}
		label, err := images.LabelToGray(labelT)
		if err != nil {
			return err
		}
		filePath := filepath.Join(pw.dir, fmt.Sprintf("sample_%05d.png", indices[ii]))
		if err = writePNG(filePath, pw.compose(img, label)); err != nil {
			return err
		}
		klog.V(1).Infof("preview written to %q", filePath)
		pw.count++
	}
	return nil
}

// colorize paints each pixel of the label with the color of its class.
func (pw *previewWriter) colorize(label *image.Gray) *image.NRGBA {
	bounds := label.Bounds()
	colored := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			class := label.GrayAt(x, y).Y
			c := ignoreColor
			if class != pw.ignoreLabel && int(class) < len(classColors) {
				c = classColors[class]
			}
			colored.SetNRGBA(x, y, c)
		}
	}
	return colored
}

// compose the three panels of a preview.
func (pw *previewWriter) compose(img *image.NRGBA, label *image.Gray) *image.NRGBA {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	colored := pw.colorize(label)
	preview := image.NewNRGBA(image.Rect(0, 0, 3*width, height))
	panel := func(ii int) image.Rectangle {
		return image.Rect(ii*width, 0, (ii+1)*width, height)
	}
	draw.Draw(preview, panel(0), img, image.Point{}, draw.Src)
	draw.Draw(preview, panel(1), colored, image.Point{}, draw.Src)
	draw.Draw(preview, panel(2), img, image.Point{}, draw.Src)
	mask := image.NewUniform(color.Alpha{A: overlayOpacity})
	draw.DrawMask(preview, panel(2), colored, image.Point{}, mask, image.Point{}, draw.Over)
	return preview
}

func writePNG(filePath string, img image.Image) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode PNG to %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", filePath)
}
