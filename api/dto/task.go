package dto

import "errors"

var ErrTaskNotFound = errors.New("task not found")

type CreateTaskRequest struct {
	Name        string   `json:"name"`
	Algorithms  string   `json:"algorithms"`
	ImagePaths  []string `json:"image_paths"`
	TemplateDir string   `json:"template_dir,omitempty"`
}

type RestartTaskRequest struct {
	Algorithms string `json:"algorithms,omitempty"`
}

type TaskResponse struct {
	ID            string  `json:"id"`
	TraceID       string  `json:"trace_id,omitempty"`
	Name          string  `json:"name,omitempty"`
	Algorithms    string  `json:"algorithms,omitempty"`
	Status        string  `json:"status"`
	Progress      float64 `json:"progress"`
	FailureReason string  `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

type ReportResponse struct {
	TaskID  string `json:"task_id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
