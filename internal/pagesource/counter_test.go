package pagesource

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-merger/internal/merge"
	"github.com/aliskhannn/pdf-merger/internal/model"
)

// writePDF writes a document of n pages, each 216x288 pt.
func writePDF(t *testing.T, n int) string {
	t.Helper()

	pages := make([]model.PageImage, n)
	for i := range pages {
		pages[i] = model.PageImage{Index: i, Image: imaging.New(600, 800, color.NRGBA{R: uint8(60 * i), A: 255})}
	}

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, merge.WriteDocument(path, pages, 90))
	return path
}

func writeCorrupt(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))
	return path
}

func TestCountersOnRealDocument(t *testing.T) {
	path := writePDF(t, 3)

	counters := map[string]Counter{
		"pdfcpu":     PDFCPUCounter(),
		"ledongthuc": LedongthucCounter(),
		"fitz":       CounterFunc(FitzRasterizer{}.PageCount),
		"render":     RenderCounter(FitzRasterizer{}, model.CountDPI),
	}

	for name, c := range counters {
		t.Run(name, func(t *testing.T) {
			n, err := c.Count(path)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		})
	}
}

func TestCountersOnCorruptDocument(t *testing.T) {
	path := writeCorrupt(t)

	for name, c := range map[string]Counter{
		"pdfcpu":     PDFCPUCounter(),
		"ledongthuc": LedongthucCounter(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Count(path)
			assert.Error(t, err)
		})
	}

	assert.Zero(t, New(FitzRasterizer{}).EstimatePageCount(path))
}

func TestEstimatePageCountRealDocument(t *testing.T) {
	assert.Equal(t, 4, New(FitzRasterizer{}).EstimatePageCount(writePDF(t, 4)))
}

func TestFitzRender(t *testing.T) {
	path := writePDF(t, 2)

	var sizes []image.Point
	err := FitzRasterizer{}.Render(context.Background(), path, model.RenderDPI, func(_ int, img image.Image) error {
		sizes = append(sizes, img.Bounds().Size())
		return nil
	})

	require.NoError(t, err)
	require.Len(t, sizes, 2)
	for _, s := range sizes {
		assert.InDelta(t, 600, s.X, 2)
		assert.InDelta(t, 800, s.Y, 2)
	}
}

func TestFitzRenderStopsWhenCancelled(t *testing.T) {
	path := writePDF(t, 3)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := FitzRasterizer{}.Render(ctx, path, model.CountDPI, func(int, image.Image) error {
		calls++
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRenderPagesRealDocument(t *testing.T) {
	path := writePDF(t, 3)

	var pages []model.PageImage
	err := New(FitzRasterizer{}).RenderPages(context.Background(), path, 800, model.RenderDPI, func(p model.PageImage) error {
		pages = append(pages, p)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, 800, p.Width())
	}
}
