// Package progress provides foreground sinks for pipeline progress updates.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Bar renders job progress as a terminal progress bar.
type Bar struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBar creates a Bar writing to out. The bar is sized once the range is known.
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

func (b *Bar) OnRangeSet(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(b.out)
		}),
	)
}

func (b *Bar) OnProgress(value int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.Describe(message)
	_ = b.bar.Set(value)
}

func (b *Bar) OnFinished(result model.JobResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		if result.Success() {
			_ = b.bar.Finish()
		} else {
			_ = b.bar.Exit()
			fmt.Fprintln(b.out)
		}
	}

	mark := "✗"
	if result.Success() {
		mark = "✓"
	}
	fmt.Fprintf(b.out, "%s %s\n", mark, result.Message)
}
