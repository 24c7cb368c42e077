package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/pdf-merger/internal/config"
	"github.com/aliskhannn/pdf-merger/internal/model"
	"github.com/aliskhannn/pdf-merger/internal/pipeline"
	"github.com/aliskhannn/pdf-merger/internal/progress"
	jobrepo "github.com/aliskhannn/pdf-merger/internal/repository/job"
)

var (
	ErrInvalidRequest = errors.New("invalid job request")
	ErrJobNotRunning  = errors.New("job is not running")
	ErrShuttingDown   = errors.New("service is shutting down")
)

// eventBuffer is the per-job progress event buffer. Intermediate progress
// events are dropped when the publisher falls this far behind.
const eventBuffer = 64

// fileStorage moves job inputs and outputs between the bucket and local disk.
type fileStorage interface {
	Fetch(ctx context.Context, object, dst string) error
	Upload(ctx context.Context, src, object string) error
}

// repository persists job history.
type repository interface {
	CreateJob(ctx context.Context, job model.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus, message string) error
	UpdateProgress(ctx context.Context, id uuid.UUID, value, total int) error
	GetJob(ctx context.Context, id uuid.UUID) (model.JobRecord, error)
}

// publisher delivers progress events to external listeners.
type publisher interface {
	Publish(ctx context.Context, event model.ProgressEvent) error
}

// CoordinatorFactory builds a Coordinator reporting to p.
type CoordinatorFactory func(p pipeline.Progress) *pipeline.Coordinator

type runningJob struct {
	cancel context.CancelFunc
	coord  *pipeline.Coordinator
}

// Service runs merge jobs in the background on behalf of the HTTP API and
// the Kafka command consumer.
type Service struct {
	ctx            context.Context
	storage        fileStorage
	repo           repository
	publisher      publisher
	newCoordinator CoordinatorFactory
	defaults       config.Job
	stagingDir     string
	slots          chan struct{}

	mu      sync.Mutex
	running map[uuid.UUID]*runningJob
	wg      sync.WaitGroup
}

// NewService creates a Service. Jobs run under ctx; cancelling it cancels all
// running jobs. publisher may be nil.
func NewService(
	ctx context.Context,
	fs fileStorage,
	repo repository,
	p publisher,
	factory CoordinatorFactory,
	defaults config.Job,
	worker config.Worker,
) *Service {
	maxJobs := worker.MaxJobs
	if maxJobs < 1 {
		maxJobs = 1
	}

	return &Service{
		ctx:            ctx,
		storage:        fs,
		repo:           repo,
		publisher:      p,
		newCoordinator: factory,
		defaults:       defaults,
		stagingDir:     worker.StagingDir,
		slots:          make(chan struct{}, maxJobs),
		running:        make(map[uuid.UUID]*runningJob),
	}
}

// BuildJob validates req and fills unset parameters from the defaults.
// Config.OutputPath holds the output object name.
func (s *Service) BuildJob(req model.JobRequest) (model.Job, error) {
	if len(req.Inputs) == 0 {
		return model.Job{}, fmt.Errorf("%w: at least one input is required", ErrInvalidRequest)
	}

	cfg := s.defaults.JobConfig(req.Output)
	if req.Width != 0 {
		cfg.Width = req.Width
	}
	if req.DPI != 0 {
		cfg.DPI = req.DPI
	}
	if req.Quality != 0 {
		cfg.Quality = req.Quality
	}
	if req.Compress != nil {
		cfg.Compress = *req.Compress
	}

	if err := cfg.Validate(); err != nil {
		return model.Job{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	job := model.NewJob(req.Inputs, cfg)
	if req.ID != uuid.Nil {
		job.ID = req.ID
	}

	return job, nil
}

// Submit records the job and starts it in the background.
func (s *Service) Submit(ctx context.Context, req model.JobRequest) (uuid.UUID, error) {
	if s.ctx.Err() != nil {
		return uuid.Nil, ErrShuttingDown
	}

	job, err := s.BuildJob(req)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("submit: %w", err)
	}

	jobCtx, cancel := context.WithCancel(s.ctx)
	rj := &runningJob{cancel: cancel}

	s.mu.Lock()
	s.running[job.ID] = rj
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(jobCtx, job, rj)

	return job.ID, nil
}

// Cancel requests cancellation of a running job.
func (s *Service) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	rj, ok := s.running[id]
	var coord *pipeline.Coordinator
	if ok {
		coord = rj.coord
	}
	s.mu.Unlock()

	if !ok {
		return ErrJobNotRunning
	}

	rj.cancel()
	if coord != nil {
		coord.Cancel()
	}

	return nil
}

// Get returns the stored job, overlaid with live progress if it is running.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.JobRecord, error) {
	rec, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return model.JobRecord{}, err
	}

	s.mu.Lock()
	var coord *pipeline.Coordinator
	if rj, ok := s.running[id]; ok {
		coord = rj.coord
	}
	s.mu.Unlock()

	if coord != nil {
		snap := coord.Snapshot()
		rec.Value, rec.Total = snap.Value, snap.Total
		if snap.Message != "" {
			rec.Message = snap.Message
		}
	}

	return rec, nil
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, job model.Job, rj *runningJob) {
	defer s.wg.Done()
	defer rj.cancel()
	defer func() {
		s.mu.Lock()
		delete(s.running, job.ID)
		s.mu.Unlock()
	}()

	log := zlog.Logger.With().Str("job_id", job.ID.String()).Logger()

	events := pipeline.NewChannelSink(job.ID, eventBuffer)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		s.forward(job.ID, events.Events())
	}()
	defer func() { <-forwarded }()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(job.ID, model.JobResult{JobID: job.ID, Status: model.StatusCancelled, Message: pipeline.MsgCancelled}, events)
		return
	}

	s.setStatus(job.ID, model.StatusRunning, "")

	dir := filepath.Join(s.stagingDir, job.ID.String())
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Msg("failed to remove staging directory")
		}
	}()

	local, err := s.stage(ctx, dir, job)
	if err != nil {
		status, msg := model.StatusFailed, "failed to stage inputs"
		if ctx.Err() != nil {
			status, msg = model.StatusCancelled, pipeline.MsgCancelled
		}
		log.Error().Err(err).Msg("staging failed")
		s.finish(job.ID, model.JobResult{JobID: job.ID, Status: status, Message: msg}, events)
		return
	}

	coord := s.newCoordinator(pipeline.Multi(events, progress.NewLog(job.ID)))
	s.mu.Lock()
	rj.coord = coord
	s.mu.Unlock()

	result, err := coord.Run(ctx, local)
	if err != nil {
		log.Error().Err(err).Msg("failed to start job")
		s.finish(job.ID, model.JobResult{JobID: job.ID, Status: model.StatusFailed, Message: err.Error()}, events)
		return
	}

	if result.Success() {
		if err := s.storage.Upload(s.ctx, local.Config.OutputPath, job.Config.OutputPath); err != nil {
			log.Error().Err(err).Msg("upload failed")
			result = model.JobResult{JobID: job.ID, Status: model.StatusFailed, Message: "failed to upload output"}
			s.publishResult(result)
		} else {
			result.Message = strings.ReplaceAll(result.Message, local.Config.OutputPath, job.Config.OutputPath)
		}
	}

	s.setStatus(job.ID, result.Status, result.Message)
}

// stage downloads the inputs into dir and returns a copy of job that
// refers to the local files. Inputs that cannot be fetched are skipped.
func (s *Service) stage(ctx context.Context, dir string, job model.Job) (model.Job, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Job{}, fmt.Errorf("create staging directory: %w", err)
	}

	local := job
	local.Inputs = make([]string, 0, len(job.Inputs))

	for i, object := range job.Inputs {
		if err := ctx.Err(); err != nil {
			return model.Job{}, err
		}

		dst := filepath.Join(dir, fmt.Sprintf("%04d_%s", i, sanitize(path.Base(object))))
		if err := s.storage.Fetch(ctx, object, dst); err != nil {
			zlog.Logger.Warn().Err(err).Str("object", object).Msg("skipping input")
			continue
		}

		local.Inputs = append(local.Inputs, dst)
	}

	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}

	local.Config.OutputPath = filepath.Join(dir, "output.pdf")

	return local, nil
}

// finish records a result for a job that never reached the coordinator.
func (s *Service) finish(id uuid.UUID, result model.JobResult, events *pipeline.ChannelSink) {
	events.OnFinished(result)
	s.setStatus(id, result.Status, result.Message)
}

func (s *Service) setStatus(id uuid.UUID, status model.JobStatus, message string) {
	if err := s.repo.UpdateStatus(context.WithoutCancel(s.ctx), id, status, message); err != nil && !errors.Is(err, jobrepo.ErrJobNotFound) {
		zlog.Logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to update job status")
	}
}

// publishResult announces a result that replaces the one already sent by
// the coordinator.
func (s *Service) publishResult(result model.JobResult) {
	if s.publisher == nil {
		return
	}

	ev := model.ProgressEvent{
		JobID:     result.JobID,
		Type:      model.EventFinished,
		Success:   result.Success(),
		Status:    result.Status,
		Message:   result.Message,
		Timestamp: time.Now(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(s.ctx), ev); err != nil {
		zlog.Logger.Warn().Err(err).Str("job_id", result.JobID.String()).Msg("failed to publish result")
	}
}

// forward publishes events and stores progress until the sink is closed.
func (s *Service) forward(id uuid.UUID, events <-chan model.ProgressEvent) {
	ctx := context.WithoutCancel(s.ctx)
	total := 0

	for ev := range events {
		switch ev.Type {
		case model.EventRange:
			total = ev.Total
			if err := s.repo.UpdateProgress(ctx, id, 0, total); err != nil {
				zlog.Logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to store progress")
			}
		case model.EventProgress:
			if err := s.repo.UpdateProgress(ctx, id, ev.Value, total); err != nil {
				zlog.Logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to store progress")
			}
		}

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			zlog.Logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to publish progress event")
		}
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
}
