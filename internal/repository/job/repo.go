package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/pdf-merger/internal/model"
)

var ErrJobNotFound = errors.New("job not found")

// Repository persists job history in PostgreSQL.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateJob inserts a pending job.
func (r *Repository) CreateJob(ctx context.Context, job model.Job) error {
	query := `
		INSERT INTO jobs (id, inputs, output, config, status)
		VALUES ($1, $2, $3, $4, $5)
    `

	inputsJSON, err := json.Marshal(job.Inputs)
	if err != nil {
		return fmt.Errorf("create: failed to marshal inputs: %w", err)
	}

	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("create: failed to marshal config: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx, query, job.ID, inputsJSON, job.Config.OutputPath, configJSON, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("create: failed to save job: %w", err)
	}

	return nil
}

// UpdateStatus moves a job to status. Terminal statuses also set finished_at.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.JobStatus, message string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    message = $2,
		    finished_at = CASE WHEN $3 THEN now() ELSE finished_at END
		WHERE id = $4
    `

	res, err := r.db.ExecContext(ctx, query, status, message, status.Terminal(), id)
	if err != nil {
		return fmt.Errorf("update: failed to update job: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrJobNotFound
	}

	return nil
}

// UpdateProgress stores the latest progress snapshot of a job.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, value, total int) error {
	query := `
		UPDATE jobs
		SET progress_value = $1, progress_total = $2
		WHERE id = $3
    `

	if _, err := r.db.ExecContext(ctx, query, value, total, id); err != nil {
		return fmt.Errorf("update: failed to update progress: %w", err)
	}

	return nil
}

// GetJob retrieves a job record by ID.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (model.JobRecord, error) {
	query := `
		SELECT inputs, output, config, status, message, progress_value, progress_total, created_at, finished_at
		FROM jobs
		WHERE id = $1
    `

	var (
		rec         model.JobRecord
		inputsBytes []byte
		configBytes []byte
		finishedAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inputsBytes, &rec.Output, &configBytes, &rec.Status, &rec.Message,
		&rec.Value, &rec.Total, &rec.CreatedAt, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JobRecord{}, ErrJobNotFound
		}

		return model.JobRecord{}, fmt.Errorf("get: failed to get job: %w", err)
	}

	if err := json.Unmarshal(inputsBytes, &rec.Inputs); err != nil {
		return model.JobRecord{}, fmt.Errorf("get: failed to unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal(configBytes, &rec.Config); err != nil {
		return model.JobRecord{}, fmt.Errorf("get: failed to unmarshal config: %w", err)
	}
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}

	rec.ID = id

	return rec, nil
}
