package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Progress receives updates from a running Coordinator. Calls arrive on the
// coordinator's goroutine, not the caller's; implementations must not block
// for long and must synchronise access to their own state.
type Progress interface {
	OnRangeSet(total int)
	OnProgress(value int, message string)
	OnFinished(result model.JobResult)
}

// Discard ignores every update.
var Discard Progress = discard{}

type discard struct{}

func (discard) OnRangeSet(int)             {}
func (discard) OnProgress(int, string)     {}
func (discard) OnFinished(model.JobResult) {}

// Multi fans every update out to all sinks in order.
func Multi(sinks ...Progress) Progress {
	return multi(sinks)
}

type multi []Progress

func (m multi) OnRangeSet(total int) {
	for _, p := range m {
		p.OnRangeSet(total)
	}
}

func (m multi) OnProgress(value int, message string) {
	for _, p := range m {
		p.OnProgress(value, message)
	}
}

func (m multi) OnFinished(result model.JobResult) {
	for _, p := range m {
		p.OnFinished(result)
	}
}

// ChannelSink converts updates into ProgressEvents on a buffered channel.
// Intermediate progress events are dropped when the buffer is full; range
// and finished events always block until delivered. The channel is closed
// after the finished event.
type ChannelSink struct {
	jobID  uuid.UUID
	events chan model.ProgressEvent
	once   sync.Once
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(jobID uuid.UUID, buffer int) *ChannelSink {
	return &ChannelSink{jobID: jobID, events: make(chan model.ProgressEvent, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan model.ProgressEvent {
	return s.events
}

func (s *ChannelSink) OnRangeSet(total int) {
	s.events <- model.ProgressEvent{JobID: s.jobID, Type: model.EventRange, Total: total, Timestamp: time.Now()}
}

func (s *ChannelSink) OnProgress(value int, message string) {
	select {
	case s.events <- model.ProgressEvent{JobID: s.jobID, Type: model.EventProgress, Value: value, Message: message, Timestamp: time.Now()}:
	default:
	}
}

func (s *ChannelSink) OnFinished(result model.JobResult) {
	s.once.Do(func() {
		s.events <- model.ProgressEvent{
			JobID:     s.jobID,
			Type:      model.EventFinished,
			Success:   result.Success(),
			Status:    result.Status,
			Message:   result.Message,
			Timestamp: time.Now(),
		}
		close(s.events)
	})
}

// Snapshot is a read-only copy of a job's progress.
type Snapshot struct {
	Value   int
	Total   int
	Message string
	Done    bool
}

// state tracks progress for one job. The value never decreases and never
// exceeds the total number of steps.
type state struct {
	mu         sync.Mutex
	totalPages int
	totalSteps int
	value      int
	message    string
	done       bool
}

// stepsFor reserves max(1, pages/10) steps after the page steps for merging.
func stepsFor(totalPages int) int {
	return totalPages + max(1, totalPages/10)
}

func (s *state) reset(totalPages int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalPages = totalPages
	s.totalSteps = stepsFor(totalPages)
	s.value = 0
	s.message = ""
	s.done = false

	return s.totalSteps
}

// clear forgets the previous job's progress.
func (s *state) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalPages, s.totalSteps, s.value = 0, 0, 0
	s.message = ""
	s.done = false
}

// advance records value and message and returns the value to publish.
func (s *state) advance(value int, message string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	value = min(value, s.totalSteps)
	if value > s.value {
		s.value = value
	}
	s.message = message

	return s.value
}

func (s *state) finish(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	s.done = true
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{Value: s.value, Total: s.totalSteps, Message: s.message, Done: s.done}
}
