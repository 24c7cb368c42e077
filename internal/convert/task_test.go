package convert

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// fakeRenderer yields pages 0..pages-1 and then returns err.
type fakeRenderer struct {
	pages   int
	err     error
	onPage  func(i int)
	panicOn int
}

func (f fakeRenderer) RenderPages(ctx context.Context, path string, width, _ int, yield func(model.PageImage) error) error {
	for i := 0; i < f.pages; i++ {
		if f.panicOn > 0 && i == f.panicOn {
			panic("decoder exploded")
		}
		img := image.NewNRGBA(image.Rect(0, 0, width, width))
		if err := yield(model.PageImage{Source: path, Index: i, Image: img}); err != nil {
			return err
		}
		if f.onPage != nil {
			f.onPage(i)
		}
	}
	return f.err
}

func TestTaskRun(t *testing.T) {
	task := Task{Order: 2, Path: "doc.pdf", Width: 10, DPI: model.RenderDPI, ReleaseEvery: 2}

	res := task.Run(context.Background(), fakeRenderer{pages: 5})

	require.NoError(t, res.Err)
	assert.False(t, res.Cancelled)
	assert.Equal(t, 2, res.Order)
	assert.Equal(t, 5, res.Count)
	require.Len(t, res.Pages, 5)
	for i, p := range res.Pages {
		assert.Equal(t, i, p.Index)
	}
}

func TestTaskRunError(t *testing.T) {
	broken := errors.New("corrupt file")

	res := Task{Path: "doc.pdf", Width: 10}.Run(context.Background(), fakeRenderer{pages: 3, err: broken})

	assert.ErrorIs(t, res.Err, broken)
	assert.False(t, res.Cancelled)
	assert.Zero(t, res.Count)
	assert.Nil(t, res.Pages)
}

func TestTaskRunPanic(t *testing.T) {
	res := Task{Path: "doc.pdf", Width: 10}.Run(context.Background(), fakeRenderer{pages: 3, panicOn: 1})

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "decoder exploded")
	assert.Zero(t, res.Count)
}

func TestTaskRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Task{Path: "a.png", Width: 10}.Run(ctx, fakeRenderer{pages: 1})

	assert.True(t, res.Cancelled)
	assert.NoError(t, res.Err)
	assert.Zero(t, res.Count)
}

func TestTaskRunCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := fakeRenderer{pages: 10, onPage: func(i int) {
		if i == 1 {
			cancel()
		}
	}}

	res := Task{Path: "doc.pdf", Width: 10}.Run(ctx, r)

	assert.True(t, res.Cancelled)
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Pages)
}

func TestTaskRunErrorLeavesLoggingToCaller(t *testing.T) {
	var buf bytes.Buffer
	prev := zlog.Logger
	zlog.Logger = zerolog.New(&buf)
	t.Cleanup(func() { zlog.Logger = prev })

	res := Task{Path: "doc.pdf", Width: 10}.Run(context.Background(), fakeRenderer{err: errors.New("corrupt file")})

	require.Error(t, res.Err)
	assert.Empty(t, buf.String())
}
