// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

// ProgressBar displays the progress of iterating over a dataset, along with a table of statistics
// that is refreshed asynchronously.
//
// Create it with NewProgressBar, call Add as items are consumed, and Done at the end.
type ProgressBar struct {
	total     int
	itsString string
	writer    io.Writer
	bar       *progressbar.ProgressBar
	start     time.Time

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan int
	asyncUpdatesDone sync.WaitGroup
	doneOnce         sync.Once

	extraMetricFns []ExtraMetricFn
}

// NewProgressBar creates and starts displaying a progress bar on os.Stdout.
//
// The total is the expected number of items (use -1 if unknown), and itsString names the unit of
// the items (e.g.: "images"). Optionally, one can provide extraMetrics: functions that are called at
// every update of the progress bar and should return a name (title) and a value to be included in
// the table of statistics.
func NewProgressBar(total int, itsString string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	return newProgressBar(os.Stdout, total, itsString, extraMetrics...)
}

func newProgressBar(writer io.Writer, total int, itsString string, extraMetrics ...ExtraMetricFn) *ProgressBar {
	if total <= 0 {
		total = -1
	}
	pBar := &ProgressBar{
		total:          total,
		itsString:      itsString,
		writer:         writer,
		start:          time.Now(),
		isFirstOutput:  true,
		termenv:        termenv.NewOutput(writer),
		statsStyle:     lipgloss.NewStyle().PaddingLeft(8),
		statsTable:     newTable(),
		updates:        make(chan int, 100), // Large buffer so things are not blocked.
		extraMetricFns: extraMetrics,
	}
	pBar.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(itsString),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(writer),
	)
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
	return pBar
}

// Add amount of items processed. It is not safe for concurrent use, and it must not be called after Done.
func (pBar *ProgressBar) Add(amount int) {
	if amount <= 0 {
		return
	}
	pBar.updates <- amount
}

// Done flushes the pending updates and restores the terminal cursor.
// It can be called more than once.
func (pBar *ProgressBar) Done() {
	pBar.doneOnce.Do(func() {
		close(pBar.updates)
		pBar.asyncUpdatesDone.Wait()
		pBar.termenv.ShowCursor()
		_, _ = fmt.Fprintln(pBar.writer)
	})
}

// drawUpdates asynchronously draws updates: this is handy if the iteration is faster than the terminal.
func (pBar *ProgressBar) drawUpdates() {
	defer pBar.asyncUpdatesDone.Done()
	count := 0
	for amount := range pBar.updates {
		// Exhaust the updates in the buffer:
	exhaust:
		for {
			select {
			case newAmount, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newAmount
			default:
				break exhaust
			}
		}
		count += amount

		// Create the table to be printed.
		elapsed := time.Since(pBar.start)
		pBar.statsTable.Data(lgtable.NewStringData())
		if pBar.total > 0 {
			pBar.statsTable.Row(pBar.itsString, fmt.Sprintf("%s of %s",
				humanize.Comma(int64(count)), humanize.Comma(int64(pBar.total))))
		} else {
			pBar.statsTable.Row(pBar.itsString, humanize.Comma(int64(count)))
		}
		pBar.statsTable.Row("Elapsed", FormatDuration(elapsed))
		pBar.statsTable.Row("Mean duration", FormatDuration(elapsed/time.Duration(count)))
		for _, extraMetric := range pBar.extraMetricFns {
			name, value := extraMetric()
			pBar.statsTable.Row(name, value)
		}

		// For command-line, we clear the previous lines that will be overwritten.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			numRows := 3 + len(pBar.extraMetricFns)
			pBar.termenv.CursorPrevLine(numRows + 2 + 1)
		}
		pBar.isFirstOutput = false

		// Print update.
		_, _ = fmt.Fprintln(pBar.writer, pBar.statsStyle.Render(pBar.statsTable.String()))
		_ = pBar.bar.Add(amount) // Prints progress bar line.
		_, _ = fmt.Fprint(pBar.writer, "\033[J\n")
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
}
