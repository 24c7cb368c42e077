package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Accepted ranges for job parameters.
const (
	MinWidth   = 100
	MaxWidth   = 4000
	MinQuality = 1
	MaxQuality = 100

	DefaultWidth   = 800
	DefaultQuality = 85

	// RenderDPI is the rasterisation resolution used by the full pipeline.
	RenderDPI = 200
	// CountDPI is the rasterisation resolution used when a PDF page count
	// can only be obtained by rendering.
	CountDPI = 10
)

// ErrInvalidConfig is returned when a JobConfig fails validation.
var ErrInvalidConfig = errors.New("invalid job config")

// JobConfig holds the immutable parameters of a single job.
type JobConfig struct {
	Width      int    `json:"width"`       // target page width in pixels
	DPI        int    `json:"dpi"`         // PDF rasterisation DPI
	Compress   bool   `json:"compress"`    // run the structural compression pass
	Quality    int    `json:"quality"`     // image re-encode quality, 1-100
	OutputPath string `json:"output_path"` // final PDF location
}

// Validate checks that every field is within its accepted range.
func (c JobConfig) Validate() error {
	switch {
	case c.Width < MinWidth || c.Width > MaxWidth:
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, MinWidth, MaxWidth, c.Width)
	case c.Quality < MinQuality || c.Quality > MaxQuality:
		return fmt.Errorf("%w: quality must be between %d and %d, got %d", ErrInvalidConfig, MinQuality, MaxQuality, c.Quality)
	case c.DPI <= 0:
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrInvalidConfig, c.DPI)
	case strings.TrimSpace(c.OutputPath) == "":
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	return nil
}

// Job is one unit of submitted work: the ordered inputs plus their config.
// Inputs order is the final page order; duplicates are allowed.
type Job struct {
	ID     uuid.UUID `json:"id"`
	Inputs []string  `json:"inputs"`
	Config JobConfig `json:"config"`
}

// NewJob copies paths so that the job never shares mutable state with the caller.
func NewJob(paths []string, cfg JobConfig) Job {
	inputs := make([]string, len(paths))
	copy(inputs, paths)

	return Job{
		ID:     uuid.New(),
		Inputs: inputs,
		Config: cfg,
	}
}
