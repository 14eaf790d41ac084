// Copyright 2025-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/gomlx/celebamask/augment"
	"github.com/gomlx/celebamask/celebamask"
	"github.com/gomlx/celebamask/ui/commandline"
)

// printSummary of the iteration over the dataset.
func printSummary(ds *celebamask.Dataset, config *augment.Config, stats *statistics) {
	fmt.Println(titleStyle.Render("Summary"))
	rows := [][]string{
		{"dataset", ds.Descriptors().Root()},
		{"# samples in dataset", humanize.Comma(int64(ds.Len()))},
		{"# samples yielded", humanize.Comma(int64(len(stats.samples)))},
		{"crop", fmt.Sprintf("%d x %d", config.CropHeight, config.CropWidth)},
		{"scale jitter", fmt.Sprintf("%v", config.Scale)},
		{"mirror", fmt.Sprintf("%v", config.Mirror)},
		{"mean (R, G, B)", fmt.Sprintf("%g, %g, %g", config.Mean[0], config.Mean[1], config.Mean[2])},
		{"ignore label", fmt.Sprintf("%d", config.IgnoreLabel)},
		{"# bytes yielded", humanize.Bytes(stats.bytes.Load())},
		{"# ignored pixels", humanize.Comma(stats.ignored)},
	}
	if stats.other > 0 {
		rows = append(rows, []string{"# pixels with unknown class", humanize.Comma(stats.other)})
	}
	if len(stats.samples) > 0 {
		df := samplesDataFrame(stats.samples)
		rows = append(rows,
			[]string{"mean original height", fmt.Sprintf("%.1f", df.Col("original_height").Mean())},
			[]string{"mean original width", fmt.Sprintf("%.1f", df.Col("original_width").Mean())},
			[]string{"mean classes per sample", fmt.Sprintf("%.2f", df.Col("num_classes").Mean())},
		)
	}
	fmt.Println(commandline.SprintTable(nil, rows))

	fmt.Println(titleStyle.Render("Class Distribution"))
	fractions := stats.classFractions()
	classRows := make([][]string, 0, len(celebamask.ClassNames))
	for classIdx, name := range celebamask.ClassNames {
		classRows = append(classRows, []string{
			fmt.Sprintf("%d", classIdx), name,
			humanize.Comma(stats.classPixels[classIdx]),
			fmt.Sprintf("%.2f%%", 100*fractions[classIdx]),
		})
	}
	fmt.Println(commandline.SprintTable([]string{"Id", "Class", "Pixels", "Fraction"}, classRows))
}

// samplesDataFrame converts the sample records to a DataFrame, with one column per field.
func samplesDataFrame(samples []sampleRecord) dataframe.DataFrame {
	return dataframe.LoadStructs(samples)
}

// writeSamplesCSV writes one row per sample to filePath.
func writeSamplesCSV(filePath string, samples []sampleRecord) error {
	if len(samples) == 0 {
		return errors.Errorf("no samples to write to %q", filePath)
	}
	df := samplesDataFrame(samples)
	if df.Err != nil {
		return errors.Wrapf(df.Err, "failed to convert samples to a DataFrame")
	}
	df = df.Arrange(dataframe.Sort("index"))
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	if err = df.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write CSV to %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", filePath)
}

// plotClassDistribution saves a bar chart of the fraction of the labeled pixels per class.
// The format is taken from the extension of filePath (e.g.: ".png", ".svg").
func plotClassDistribution(filePath string, classPixels []int64) error {
	var total int64
	for _, count := range classPixels {
		total += count
	}
	values := make(plotter.Values, len(classPixels))
	if total > 0 {
		for ii, count := range classPixels {
			values[ii] = float64(count) / float64(total)
		}
	}

	p := plot.New()
	p.Title.Text = "CelebAMask-HQ class distribution"
	p.Y.Label.Text = "Fraction of labeled pixels"
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrapf(err, "failed to create bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(celebamask.ClassNames...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	if err = p.Save(8*vg.Inch, 4*vg.Inch, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", filePath)
	}
	return nil
}
