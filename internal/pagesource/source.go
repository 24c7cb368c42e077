// Package pagesource turns input files into normalised page images.
//
// Raster images (.png, .jpg, .jpeg) yield exactly one page. PDFs are
// rasterised page by page. Any other extension yields zero pages.
package pagesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// ErrUnsupported is returned by RenderPages for files it cannot handle.
var ErrUnsupported = errors.New("unsupported input type")

// Kind classifies an input path by its extension.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindPDF
)

// KindOf returns the input kind for path. Extensions are case-insensitive.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return KindImage
	case ".pdf":
		return KindPDF
	default:
		return KindUnsupported
	}
}

// Rasterizer renders the pages of a PDF document.
type Rasterizer interface {
	// Render calls fn for every page in document order. Returning an error
	// from fn stops rendering and is returned unchanged.
	Render(ctx context.Context, path string, dpi int, fn func(index int, img image.Image) error) error
}

// Source implements page counting and rendering over a Rasterizer.
type Source struct {
	rasterizer Rasterizer
	counters   []Counter
}

// Option configures a Source.
type Option func(*Source)

// WithCounters replaces the PDF page counter chain. Counters are tried in
// order until one succeeds.
func WithCounters(counters ...Counter) Option {
	return func(s *Source) {
		s.counters = counters
	}
}

// New creates a Source. By default PDF pages are counted with pdfcpu, then
// ledongthuc/pdf, then the rasterizer's own page count if it has one, and
// finally a low-DPI render pass through r.
func New(r Rasterizer, opts ...Option) *Source {
	s := &Source{rasterizer: r}
	s.counters = []Counter{PDFCPUCounter(), LedongthucCounter()}
	if pc, ok := r.(interface{ PageCount(string) (int, error) }); ok {
		s.counters = append(s.counters, CounterFunc(pc.PageCount))
	}
	s.counters = append(s.counters, RenderCounter(r, model.CountDPI))

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// EstimatePageCount returns a fast page-count estimate for path. Images count
// as one page without being opened. Failures are logged and count as zero.
func (s *Source) EstimatePageCount(path string) int {
	switch KindOf(path) {
	case KindImage:
		return 1
	case KindPDF:
		var errs []error
		for _, c := range s.counters {
			n, err := c.Count(path)
			if err == nil {
				return n
			}
			errs = append(errs, err)
		}

		zlog.Logger.Warn().
			Err(errors.Join(errs...)).
			Str("path", path).
			Msg("failed to count pdf pages")
		return 0
	default:
		zlog.Logger.Debug().Str("path", path).Msg("skipping unsupported file")
		return 0
	}
}

// RenderPages decodes path into normalised pages and passes each one to
// yield. Pages already yielded stay valid when yield stops the sequence.
// Unsupported files yield nothing and return nil.
func (s *Source) RenderPages(ctx context.Context, path string, width, dpi int, yield func(model.PageImage) error) error {
	switch KindOf(path) {
	case KindImage:
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("decode image %s: %w", path, err)
		}

		return yield(model.PageImage{Source: path, Index: 0, Image: Normalize(img, width)})
	case KindPDF:
		if s.rasterizer == nil {
			return fmt.Errorf("%w: no rasterizer configured for %s", ErrUnsupported, path)
		}

		return s.rasterizer.Render(ctx, path, dpi, func(index int, img image.Image) error {
			return yield(model.PageImage{Source: path, Index: index, Image: Normalize(img, width)})
		})
	default:
		zlog.Logger.Debug().Str("path", path).Msg("skipping unsupported file")
		return nil
	}
}

// Normalize flattens img onto a white background and scales it to width,
// preserving the aspect ratio.
func Normalize(img image.Image, width int) *image.NRGBA {
	b := img.Bounds()

	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	flat := imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)

	height := int(float64(b.Dy()) * float64(width) / float64(b.Dx()))
	if height < 1 {
		height = 1
	}

	return imaging.Resize(flat, width, height, imaging.Lanczos)
}
