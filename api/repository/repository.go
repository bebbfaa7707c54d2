package repository

import (
	"context"
	"errors"

	"imageInspector/api/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

type Repository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus, progress float64, failureReason string) error
	ResetTask(ctx context.Context, id string, algorithms string, clearFailure bool) error
	EnsureReport(ctx context.Context, taskID, kind, title string) (bool, error)
	ReportExists(ctx context.Context, taskID string) (bool, error)
}
