package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() JobConfig {
	return JobConfig{Width: DefaultWidth, DPI: RenderDPI, Compress: true, Quality: DefaultQuality, OutputPath: "out.pdf"}
}

func TestJobConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*JobConfig)
		wantErr bool
	}{
		{"defaults", func(*JobConfig) {}, false},
		{"min width", func(c *JobConfig) { c.Width = MinWidth }, false},
		{"max width", func(c *JobConfig) { c.Width = MaxWidth }, false},
		{"width too small", func(c *JobConfig) { c.Width = MinWidth - 1 }, true},
		{"width too large", func(c *JobConfig) { c.Width = MaxWidth + 1 }, true},
		{"quality zero", func(c *JobConfig) { c.Quality = 0 }, true},
		{"quality too large", func(c *JobConfig) { c.Quality = 101 }, true},
		{"quality one", func(c *JobConfig) { c.Quality = 1 }, false},
		{"dpi zero", func(c *JobConfig) { c.DPI = 0 }, true},
		{"blank output", func(c *JobConfig) { c.OutputPath = "  " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewJobCopiesInputs(t *testing.T) {
	paths := []string{"a.png", "b.pdf", "a.png"}

	job := NewJob(paths, validConfig())
	paths[0] = "changed.png"

	assert.Equal(t, []string{"a.png", "b.pdf", "a.png"}, job.Inputs)
	assert.NotEqual(t, NewJob(paths, validConfig()).ID, job.ID)
}

func TestJobStatus(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())

	assert.True(t, JobResult{Status: StatusSucceeded}.Success())
	assert.True(t, JobResult{Status: StatusCancelled}.Cancelled())
	assert.False(t, JobResult{Status: StatusFailed}.Success())
}
