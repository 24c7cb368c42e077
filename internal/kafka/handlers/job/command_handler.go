package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/model"
	jobsvc "github.com/aliskhannn/pdf-merger/internal/service/job"
)

// service defines the job operations driven by commands.
type service interface {
	Submit(ctx context.Context, req model.JobRequest) (uuid.UUID, error)
	Cancel(id uuid.UUID) error
}

// CommandHandler handles Kafka messages carrying job commands.
type CommandHandler struct {
	service service
}

// NewCommandHandler creates a new handler with the given service.
func NewCommandHandler(s service) *CommandHandler {
	return &CommandHandler{service: s}
}

// Handle decodes a command and dispatches it to the service. Cancelling a
// job that is not running is logged and treated as handled.
func (h *CommandHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var cmd model.Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	switch cmd.Type {
	case model.CommandSubmit:
		if cmd.Request == nil {
			return errors.New("submit command without request")
		}

		id, err := h.service.Submit(ctx, *cmd.Request)
		if errors.Is(err, jobsvc.ErrInvalidRequest) {
			zlog.Logger.Warn().Err(err).Msg("rejected invalid job request")
			return nil
		}
		if err != nil {
			return fmt.Errorf("submit job: %w", err)
		}

		zlog.Logger.Info().Str("job_id", id.String()).Msg("job submitted")
	case model.CommandCancel:
		if err := h.service.Cancel(cmd.JobID); err != nil {
			if errors.Is(err, jobsvc.ErrJobNotRunning) {
				zlog.Logger.Warn().Str("job_id", cmd.JobID.String()).Msg("cancel for job that is not running")
				return nil
			}
			return fmt.Errorf("cancel job: %w", err)
		}

		zlog.Logger.Info().Str("job_id", cmd.JobID.String()).Msg("job cancel requested")
	default:
		return fmt.Errorf("unknown command type: %q", cmd.Type)
	}

	return nil
}
