package pagesource

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders PDF pages with MuPDF through go-fitz.
// Each call opens its own document, so concurrent calls are safe.
type FitzRasterizer struct{}

// Render rasterises every page of path at dpi. ctx is checked before each page.
func (FitzRasterizer) Render(ctx context.Context, path string, dpi int, fn func(index int, img image.Image) error) error {
	doc, err := fitz.New(path)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return fmt.Errorf("render page %d of %s: %w", i+1, path, err)
		}

		if err := fn(i, img); err != nil {
			return err
		}
	}

	return nil
}

// PageCount returns the number of pages reported by MuPDF.
func (FitzRasterizer) PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}
