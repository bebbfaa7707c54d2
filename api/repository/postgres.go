package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"imageInspector/api/database"
	"imageInspector/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateTask(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (trace_id, name, algorithms, image_paths, template_dir, status, progress, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		task.TraceID,
		task.Name,
		task.Algorithms,
		task.ImagePaths,
		task.TemplateDir,
		task.Status,
		task.Progress,
		task.FailureReason,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)

	return err
}

func (r *PostgresRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT id, trace_id, name, algorithms, image_paths, template_dir, status, progress, failure_reason, created_at, updated_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	row := r.db.Pool.QueryRow(ctx, query, id)

	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.TraceID,
		&task.Name,
		&task.Algorithms,
		&task.ImagePaths,
		&task.TemplateDir,
		&task.Status,
		&task.Progress,
		&task.FailureReason,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

func (r *PostgresRepo) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, progress float64, failureReason string) error {
	query := `
		UPDATE tasks
		SET status = $1, progress = $2, failure_reason = $3, updated_at = NOW()
	`

	if status == models.StatusCompleted {
		query += `, completed_at = NOW()`
	}

	query += ` WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, status, progress, failureReason, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// ResetTask rewinds a task to pending for a restart: progress drops to 0
// and the failure reason is cleared only when the previous run failed.
func (r *PostgresRepo) ResetTask(ctx context.Context, id string, algorithms string, clearFailure bool) error {
	query := `
		UPDATE tasks
		SET status = 'pending', progress = 0, algorithms = COALESCE(NULLIF($1, ''), algorithms), updated_at = NOW()
	`
	if clearFailure {
		query += `, failure_reason = ''`
	}
	query += ` WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, algorithms, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// EnsureReport inserts a report record if none exists for the combination.
// Returns whether a record was created; calling it again is a no-op.
func (r *PostgresRepo) EnsureReport(ctx context.Context, taskID, kind, title string) (bool, error) {
	query := `
		INSERT INTO reports (task_id, kind, title, file_path, payload, created_at)
		VALUES ($1, $2, $3, '', '{}', NOW())
		ON CONFLICT (task_id, kind) DO NOTHING
	`
	result, err := r.db.Pool.Exec(ctx, query, taskID, kind, title)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *PostgresRepo) ReportExists(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE task_id = $1)`, taskID).Scan(&exists)
	return exists, err
}
