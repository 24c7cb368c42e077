package model

import "github.com/google/uuid"

// CommandType names a job command.
type CommandType string

const (
	CommandSubmit CommandType = "submit"
	CommandCancel CommandType = "cancel"
)

// JobRequest describes a job submitted to the worker service. Inputs and
// Output are object names in the configured bucket. Zero-valued parameters
// take the service defaults.
type JobRequest struct {
	ID       uuid.UUID `json:"id,omitempty"`
	Inputs   []string  `json:"inputs"`
	Output   string    `json:"output"`
	Width    int       `json:"width,omitempty"`
	DPI      int       `json:"dpi,omitempty"`
	Compress *bool     `json:"compress,omitempty"`
	Quality  int       `json:"quality,omitempty"`
}

// Command is a message on the commands topic.
type Command struct {
	Type    CommandType `json:"type"`
	JobID   uuid.UUID   `json:"job_id,omitempty"`
	Request *JobRequest `json:"request,omitempty"`
}
