package pagesource

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

type fakeRasterizer struct {
	pages int
	err   error
}

func (f fakeRasterizer) Render(ctx context.Context, _ string, _ int, fn func(int, image.Image) error) error {
	if f.err != nil {
		return f.err
	}
	for i := 0; i < f.pages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, imaging.New(20, 10, color.Black)); err != nil {
			return err
		}
	}
	return nil
}

func fixedCounter(n int, err error) Counter {
	return CounterFunc(func(string) (int, error) { return n, err })
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"a.png", KindImage},
		{"b.JPG", KindImage},
		{"dir/c.jpeg", KindImage},
		{"d.PDF", KindPDF},
		{"e.tiff", KindUnsupported},
		{"noext", KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.path))
		})
	}
}

func TestEstimatePageCount(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		path     string
		counters []Counter
		want     int
	}{
		{"image counts as one", "a.png", nil, 1},
		{"unsupported counts as zero", "a.txt", nil, 0},
		{"first counter wins", "a.pdf", []Counter{fixedCounter(3, nil), fixedCounter(9, nil)}, 3},
		{"falls back on error", "a.pdf", []Counter{fixedCounter(0, boom), fixedCounter(7, nil)}, 7},
		{"all counters fail", "a.pdf", []Counter{fixedCounter(0, boom), fixedCounter(0, boom)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(fakeRasterizer{}, WithCounters(tt.counters...))
			assert.Equal(t, tt.want, s.EstimatePageCount(tt.path))
		})
	}
}

func TestRenderCounter(t *testing.T) {
	n, err := RenderCounter(fakeRasterizer{pages: 4}, model.CountDPI).Count("x.pdf")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = RenderCounter(fakeRasterizer{err: errors.New("broken")}, model.CountDPI).Count("x.pdf")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 400, 200))

	got := Normalize(src, 800)

	assert.Equal(t, 800, got.Bounds().Dx())
	assert.Equal(t, 400, got.Bounds().Dy())

	// Transparent pixels are flattened onto white.
	r, g, b, a := got.At(10, 10).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0xffff, 0xffff, 0xffff}, [4]uint32{r, g, b, a})
}

func TestNormalizeKeepsOnePixelHeight(t *testing.T) {
	src := imaging.New(4000, 1, color.Black)

	got := Normalize(src, 100)

	assert.Equal(t, 1, got.Bounds().Dy())
}

func TestRenderPagesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, imaging.Save(imaging.New(100, 50, color.NRGBA{R: 255, A: 255}), path))

	s := New(fakeRasterizer{})

	var pages []model.PageImage
	err := s.RenderPages(context.Background(), path, 200, model.RenderDPI, func(p model.PageImage) error {
		pages = append(pages, p)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, path, pages[0].Source)
	assert.Equal(t, 200, pages[0].Width())
	assert.Equal(t, 100, pages[0].Height())
}

func TestRenderPagesPDF(t *testing.T) {
	s := New(fakeRasterizer{pages: 3})

	var indexes []int
	err := s.RenderPages(context.Background(), "doc.pdf", 40, model.RenderDPI, func(p model.PageImage) error {
		indexes = append(indexes, p.Index)
		assert.Equal(t, 40, p.Width())
		assert.Equal(t, 20, p.Height())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestRenderPagesStopsOnYieldError(t *testing.T) {
	s := New(fakeRasterizer{pages: 5})
	stop := errors.New("stop")

	calls := 0
	err := s.RenderPages(context.Background(), "doc.pdf", 40, model.RenderDPI, func(model.PageImage) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestRenderPagesUnsupported(t *testing.T) {
	s := New(fakeRasterizer{})

	err := s.RenderPages(context.Background(), "notes.txt", 100, model.RenderDPI, func(model.PageImage) error {
		t.Fatal("unexpected page")
		return nil
	})

	assert.NoError(t, err)
}

func TestRenderPagesCorruptImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	err := New(fakeRasterizer{}).RenderPages(context.Background(), path, 100, model.RenderDPI, func(model.PageImage) error {
		return nil
	})

	assert.Error(t, err)
}
