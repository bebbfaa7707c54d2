package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTaskNotFound = errors.New("task not found")

// ReportRecord is one persisted report artifact. (task_id, kind) is unique;
// saving again for the same combination supersedes the previous report.
type ReportRecord struct {
	TaskID   string
	Kind     string
	Title    string
	FilePath string
	Payload  []byte
}

type Repository interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status string, progress float64, message string) error
	SaveReport(ctx context.Context, rec *ReportRecord) error
	ReportExists(ctx context.Context, taskID string) (bool, error)
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) UpdateTaskStatus(ctx context.Context, taskID string, status string, progress float64, message string) error {
	query := `UPDATE tasks SET status = $1, progress = $2, failure_reason = $3, updated_at = NOW()`
	if status == "completed" {
		query += `, completed_at = NOW()`
	}
	query += ` WHERE id = $4`

	result, err := r.db.Exec(ctx, query, status, progress, message, taskID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SaveReport upserts the report for one algorithm combination. The unique
// constraint on (task_id, kind) keeps concurrent saves race-free; the last
// write wins and supersedes the previous report.
func (r *PostgresRepo) SaveReport(ctx context.Context, rec *ReportRecord) error {
	query := `
		INSERT INTO reports (task_id, kind, title, file_path, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (task_id, kind) DO UPDATE
		SET title = EXCLUDED.title, file_path = EXCLUDED.file_path,
		    payload = EXCLUDED.payload, created_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, rec.TaskID, rec.Kind, rec.Title, rec.FilePath, rec.Payload)
	return err
}

func (r *PostgresRepo) ReportExists(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE task_id = $1)`, taskID).Scan(&exists)
	return exists, err
}
