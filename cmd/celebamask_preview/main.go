// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// celebamask_preview iterates over one epoch of the CelebAMask-HQ dataset through the augmentation
// pipeline, and reports on what was yielded: a summary table, the per-class pixel distribution and
// optionally PNG previews of the first samples, a CSV with one row per sample and a bar chart of
// the class distribution.
//
// Example:
//
//	celebamask_preview -data=~/work/CelebAMask-HQ -n=100 -set="crop_size=256;mirror=false" -out=/tmp/previews
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/celebamask"
	"github.com/gomlx/celebamask/datasets"
	"github.com/gomlx/celebamask/support/fsutil"
	"github.com/gomlx/celebamask/types/tensors"
	"github.com/gomlx/celebamask/ui/commandline"
)

var (
	flagDataDir = flag.String("data", "~/work/CelebAMask-HQ", "Directory with the CelebAMask-HQ dataset. "+
		fmt.Sprintf("It must contain the sub-directories %q and %q.", celebamask.ImagesDir, celebamask.MasksDir))
	flagNumSamples = flag.Int("n", 0, "Number of samples to iterate over. If 0, it iterates over the whole epoch.")
	flagOutputDir  = flag.String("out", "", "If set, PNG previews of the first -previews samples are written to this directory.")
	flagPreviews   = flag.Int("previews", 8, "Number of samples to write previews for, if -out is set.")
	flagCSV        = flag.String("csv", "", "If set, a CSV file with one row per sample is written to this path.")
	flagPlot       = flag.String("plot", "", "If set, a bar chart of the class pixel distribution is saved to this path (.png or .svg).")
	flagCheck      = flag.Bool("check", false, "Check that all image and mask files exist before iterating.")
)

var titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

// createDefaultParams returns the parameters that can be changed with -set.
func createDefaultParams() *commandline.Params {
	return commandline.NewParams().
		Set("crop_size", augment.DefaultCropSize).
		Set("mean", augment.DefaultMean[:]).
		Set("scale", true).
		Set("mirror", true).
		Set("ignore_label", augment.DefaultIgnoreLabel).
		Set("seed", uint64(0)).
		Set("shuffle", false).
		Set("batch_size", 8).
		Set("drop_last", false).
		Set("parallelism", 0)
}

func main() {
	klog.InitFlags(nil)
	params := createDefaultParams()
	settings := commandline.CreateSettingsFlag(params, "")
	flag.Parse()

	paramsSet, err := commandline.ParseSettings(params, *settings)
	if err != nil {
		klog.Errorf("Failed to parse -set=%q: %+v", *settings, err)
		os.Exit(1)
	}
	if len(paramsSet) > 0 {
		fmt.Printf("Parameters set:\n%s\n", commandline.SprintModifiedSettings(params, paramsSet))
	}
	if err = run(params); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}

// configFromParams builds the augmentation configuration from the parameters.
func configFromParams(params *commandline.Params) *augment.Config {
	cropSize := commandline.GetParamOr(params, "crop_size", augment.DefaultCropSize)
	config := augment.New(cropSize, cropSize).
		WithScale(commandline.GetParamOr(params, "scale", true)).
		WithMirror(commandline.GetParamOr(params, "mirror", true)).
		WithIgnoreLabel(commandline.GetParamOr(params, "ignore_label", augment.DefaultIgnoreLabel))
	if mean := commandline.GetParamOr(params, "mean", augment.DefaultMean[:]); len(mean) == 3 {
		config.WithMean(mean[0], mean[1], mean[2])
	} else {
		klog.Warningf("Parameter \"mean\" must have 3 values (R, G, B), got %v: using default %v", mean, augment.DefaultMean)
	}
	return config
}

func run(params *commandline.Params) error {
	dataDir := must.M1(fsutil.ExpandHome(*flagDataDir))
	config := configFromParams(params)
	ds, err := celebamask.NewDataset("CelebAMask-HQ", dataDir, config, commandline.GetParamOr(params, "seed", uint64(0)))
	if err != nil {
		return err
	}
	if *flagCheck {
		if err = ds.Descriptors().Check(); err != nil {
			return err
		}
	}
	if commandline.GetParamOr(params, "shuffle", false) {
		ds.WithShuffle(commandline.GetParamOr(params, "seed", uint64(0)))
	}

	var source datasets.Dataset = ds
	total := ds.Len()
	if *flagNumSamples > 0 && *flagNumSamples < total {
		total = *flagNumSamples
		source = datasets.Take(ds, total)
	}
	parallelDS := datasets.CustomParallel(source).
		Parallelism(commandline.GetParamOr(params, "parallelism", 0)).
		Buffer(2 * commandline.GetParamOr(params, "batch_size", 8)).
		Start()
	defer parallelDS.Done()
	batched := datasets.Batch(parallelDS, commandline.GetParamOr(params, "batch_size", 8), true,
		commandline.GetParamOr(params, "drop_last", false))

	stats := newStatistics(config)
	var previews *previewWriter
	if *flagOutputDir != "" && *flagPreviews > 0 {
		previews, err = newPreviewWriter(*flagOutputDir, *flagPreviews, config)
		if err != nil {
			return err
		}
	}

	pBar := commandline.NewProgressBar(total, "images", func() (name, value string) {
		return "Bytes yielded", humanize.Bytes(stats.bytes.Load())
	})
	for {
		_, inputs, labels, err := batched.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			pBar.Done()
			return err
		}
		batchSize := inputs[0].Shape().Dim(0)
		if err = stats.addBatch(inputs, labels); err != nil {
			pBar.Done()
			return err
		}
		if previews != nil {
			if err = previews.addBatch(inputs, labels); err != nil {
				pBar.Done()
				return err
			}
		}
		tensors.FinalizeAll(inputs)
		tensors.FinalizeAll(labels)
		pBar.Add(batchSize)
	}
	pBar.Done()

	printSummary(ds, config, stats)
	if *flagCSV != "" {
		if err = writeSamplesCSV(*flagCSV, stats.samples); err != nil {
			return err
		}
		fmt.Printf("Samples written to %q\n", *flagCSV)
	}
	if *flagPlot != "" {
		if err = plotClassDistribution(*flagPlot, stats.classPixels); err != nil {
			return err
		}
		fmt.Printf("Class distribution plot saved to %q\n", *flagPlot)
	}
	if previews != nil {
		fmt.Printf("%d previews written to %q\n", previews.count, *flagOutputDir)
	}
	return nil
}
