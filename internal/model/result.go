package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// JobResult is the single terminal outcome of a job.
type JobResult struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// Success reports whether the job produced its output.
func (r JobResult) Success() bool {
	return r.Status == StatusSucceeded
}

// Cancelled reports whether the job was stopped by a cancel request.
func (r JobResult) Cancelled() bool {
	return r.Status == StatusCancelled
}

// EventType identifies a progress channel callback.
type EventType string

const (
	EventRange    EventType = "range"
	EventProgress EventType = "progress"
	EventFinished EventType = "finished"
)

// ProgressEvent is the serialisable form of a progress callback.
type ProgressEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	Type      EventType `json:"type"`
	Total     int       `json:"total,omitempty"`
	Value     int       `json:"value,omitempty"`
	Success   bool      `json:"success,omitempty"`
	Status    JobStatus `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobRecord is a persisted job row, optionally enriched with live progress.
type JobRecord struct {
	ID         uuid.UUID  `json:"id"`
	Inputs     []string   `json:"inputs"`
	Output     string     `json:"output"`
	Config     JobConfig  `json:"config"`
	Status     JobStatus  `json:"status"`
	Message    string     `json:"message"`
	Total      int        `json:"total"`
	Value      int        `json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
