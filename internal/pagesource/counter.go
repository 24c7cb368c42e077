package pagesource

import (
	"context"
	"fmt"
	"image"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

// Counter returns the number of pages of a PDF file.
type Counter interface {
	Count(path string) (int, error)
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(path string) (int, error)

// Count calls f(path).
func (f CounterFunc) Count(path string) (int, error) {
	return f(path)
}

// PDFCPUCounter reads the page count from the document's page tree.
func PDFCPUCounter() Counter {
	return CounterFunc(func(path string) (int, error) {
		n, err := api.PageCountFile(path)
		if err != nil {
			return 0, fmt.Errorf("pdfcpu: %w", err)
		}
		return n, nil
	})
}

// LedongthucCounter is a lenient reader used when pdfcpu rejects a file.
func LedongthucCounter() Counter {
	return CounterFunc(func(path string) (int, error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return 0, fmt.Errorf("ledongthuc: %w", err)
		}
		defer f.Close()

		return r.NumPage(), nil
	})
}

// RenderCounter counts pages by rasterising the whole document at dpi and
// discarding the pixels.
func RenderCounter(r Rasterizer, dpi int) Counter {
	return CounterFunc(func(path string) (int, error) {
		if r == nil {
			return 0, fmt.Errorf("render: %w", ErrUnsupported)
		}

		n := 0
		err := r.Render(context.Background(), path, dpi, func(int, image.Image) error {
			n++
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("render: %w", err)
		}

		return n, nil
	})
}
