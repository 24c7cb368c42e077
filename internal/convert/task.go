// Package convert runs the conversion of a single input file into pages.
package convert

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"


	"github.com/aliskhannn/pdf-merger/internal/model"
)

// DefaultReleaseEvery is how many pages are rendered between forced releases
// of decode buffers back to the OS.
const DefaultReleaseEvery = 10

// renderer produces normalised pages for a path.
type renderer interface {
	RenderPages(ctx context.Context, path string, width, dpi int, yield func(model.PageImage) error) error
}

// Task converts one input path into pages.
type Task struct {
	Order        int // position in the job's input list
	Path         string
	Width        int
	DPI          int
	ReleaseEvery int
}

// Result is the outcome of a Task. A failed or cancelled task carries no
// pages and a zero count.
type Result struct {
	Order     int
	Path      string
	Pages     []model.PageImage
	Count     int
	Cancelled bool
	Err       error
}

// Run executes the task. ctx is checked between pages, so a cancelled task
// returns after at most one more page. Errors and panics from r are captured
// in the Result instead of being propagated.
func (t Task) Run(ctx context.Context, r renderer) (res Result) {
	res = Result{Order: t.Order, Path: t.Path}

	if ctx.Err() != nil {
		res.Cancelled = true
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Pages, res.Count = nil, 0
			res.Err = fmt.Errorf("panic while converting %s: %v", t.Path, p)
		}
	}()

	releaseEvery := t.ReleaseEvery
	if releaseEvery <= 0 {
		releaseEvery = DefaultReleaseEvery
	}

	var pages []model.PageImage
	err := r.RenderPages(ctx, t.Path, t.Width, t.DPI, func(p model.PageImage) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		pages = append(pages, p)
		if len(pages)%releaseEvery == 0 {
			debug.FreeOSMemory()
		}

		return nil
	})

	switch {
	case ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		res.Cancelled = true
		return res
	case err != nil:
		res.Err = err
		return res
	}

	res.Pages = pages
	res.Count = len(pages)

	return res
}
