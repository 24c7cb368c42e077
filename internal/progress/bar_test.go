package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

func TestBarSuccess(t *testing.T) {
	var out bytes.Buffer
	b := NewBar(&out)

	b.OnRangeSet(6)
	b.OnProgress(3, "Processed 3/5 pages")
	b.OnFinished(model.JobResult{Status: model.StatusSucceeded, Message: "PDF saved: out.pdf"})

	assert.Contains(t, out.String(), "✓ PDF saved: out.pdf")
}

func TestBarFailureWithoutRange(t *testing.T) {
	var out bytes.Buffer
	b := NewBar(&out)

	b.OnProgress(1, "ignored")
	b.OnFinished(model.JobResult{Status: model.StatusFailed, Message: "no valid pages"})

	assert.Equal(t, "✗ no valid pages\n", out.String())
}
