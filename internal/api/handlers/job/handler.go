package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/api/respond"
	"github.com/aliskhannn/pdf-merger/internal/model"
	jobrepo "github.com/aliskhannn/pdf-merger/internal/repository/job"
	jobsvc "github.com/aliskhannn/pdf-merger/internal/service/job"
)

// service defines the job operations exposed over HTTP.
type service interface {
	Submit(ctx context.Context, req model.JobRequest) (uuid.UUID, error)
	Cancel(id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (model.JobRecord, error)
}

// Handler serves the job API.
type Handler struct {
	service service
}

// NewHandler creates a new job handler.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// Submit accepts a JSON job request and starts the job.
func (h *Handler) Submit(c *ginext.Context) {
	var req model.JobRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	id, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, jobsvc.ErrInvalidRequest) {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}
		if errors.Is(err, jobsvc.ErrShuttingDown) {
			respond.Fail(c, http.StatusServiceUnavailable, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to submit job")
		respond.Fail(c, http.StatusInternalServerError, errors.New("failed to submit job"))
		return
	}

	c.Header("Location", "/api/jobs/"+id.String())
	respond.Accepted(c, map[string]string{"id": id.String()})
}

// Get returns the job record with its current progress.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, jobrepo.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to get job")
		respond.Fail(c, http.StatusInternalServerError, errors.New("failed to get job"))
		return
	}

	respond.OK(c, rec)
}

// Cancel requests cancellation of a running job.
func (h *Handler) Cancel(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(id); err != nil {
		if errors.Is(err, jobsvc.ErrJobNotRunning) {
			respond.Fail(c, http.StatusNotFound, err)
			return
		}

		respond.Fail(c, http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return uuid.Nil, false
	}

	return id, true
}
