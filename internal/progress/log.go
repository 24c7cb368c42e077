package progress

import (
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

// Log writes every update as a structured log line.
type Log struct {
	jobID uuid.UUID
}

// NewLog creates a Log sink tagged with jobID.
func NewLog(jobID uuid.UUID) *Log {
	return &Log{jobID: jobID}
}

func (l *Log) OnRangeSet(total int) {
	zlog.Logger.Debug().Str("job_id", l.jobID.String()).Int("total", total).Msg("progress range set")
}

func (l *Log) OnProgress(value int, message string) {
	zlog.Logger.Debug().Str("job_id", l.jobID.String()).Int("value", value).Msg(message)
}

func (l *Log) OnFinished(result model.JobResult) {
	zlog.Logger.Debug().
		Str("job_id", l.jobID.String()).
		Str("status", string(result.Status)).
		Msg(result.Message)
}
