package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageInspector/api/dto"
	"imageInspector/api/middleware"
	"imageInspector/api/service"
	"imageInspector/api/validation"
)

// TaskService is the slice of the service layer the handlers need.
type TaskService interface {
	CreateTask(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error)
	RestartTask(ctx context.Context, traceID, taskID string, req *dto.RestartTaskRequest) (*dto.TaskResponse, error)
	GenerateReport(ctx context.Context, taskID string) (*dto.ReportResponse, error)
}

type TaskHandler struct {
	service   TaskService
	uploadDir string
	logger    *zap.Logger
}

func NewTaskHandler(service TaskService, uploadDir string, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service:   service,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Create accepts a multipart batch: one or more "images" files, an optional
// "template" file, plus "name" and "algorithms" form fields.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		h.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		h.handleError(w, "At least one image is required", nil, traceID, http.StatusBadRequest)
		return
	}

	batchDir := filepath.Join(h.uploadDir, uuid.NewString())
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		h.handleError(w, "Failed to prepare upload directory", err, traceID, http.StatusInternalServerError)
		return
	}

	imagePaths := make([]string, 0, len(files))
	for _, header := range files {
		path, err := h.saveUpload(header, batchDir)
		if err != nil {
			h.handleError(w, "Invalid image", err, traceID, http.StatusBadRequest)
			return
		}
		imagePaths = append(imagePaths, path)
	}

	templateDir := ""
	if templates := r.MultipartForm.File["template"]; len(templates) > 0 {
		templateDir = filepath.Join(batchDir, "template")
		if err := os.MkdirAll(templateDir, 0o755); err != nil {
			h.handleError(w, "Failed to prepare template directory", err, traceID, http.StatusInternalServerError)
			return
		}
		if _, err := h.saveUpload(templates[0], templateDir); err != nil {
			h.handleError(w, "Invalid template image", err, traceID, http.StatusBadRequest)
			return
		}
	}

	req := &dto.CreateTaskRequest{
		Name:        r.FormValue("name"),
		Algorithms:  r.FormValue("algorithms"),
		ImagePaths:  imagePaths,
		TemplateDir: templateDir,
	}

	resp, err := h.service.CreateTask(r.Context(), traceID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAlgorithms) || errors.Is(err, service.ErrNoImages) {
			h.handleError(w, "Invalid task request", err, traceID, http.StatusBadRequest)
			return
		}
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Task created",
		zap.String("trace_id", traceID),
		zap.String("task_id", resp.ID),
		zap.Int("images", len(imagePaths)),
		zap.String("algorithms", resp.Algorithms),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := strings.TrimPrefix(r.URL.Path, "/status/")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetTaskStatus(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// TaskAction routes /tasks/{id}/restart and /tasks/{id}/report.
func (h *TaskHandler) TaskAction(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		h.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}
	taskID, action := parts[0], parts[1]

	switch action {
	case "restart":
		h.restart(w, r, traceID, taskID)
	case "report":
		h.report(w, r, traceID, taskID)
	default:
		h.handleError(w, "Unknown action", nil, traceID, http.StatusNotFound)
	}
}

func (h *TaskHandler) restart(w http.ResponseWriter, r *http.Request, traceID, taskID string) {
	req := &dto.RestartTaskRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
			return
		}
	}

	resp, err := h.service.RestartTask(r.Context(), traceID, taskID, req)
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrTaskNotFound):
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
		case errors.Is(err, service.ErrRestartInProgress):
			h.handleError(w, "Task is busy", err, traceID, http.StatusTooManyRequests)
		case errors.Is(err, service.ErrNotRestartable):
			h.handleError(w, "Task cannot be restarted", err, traceID, http.StatusConflict)
		case errors.Is(err, service.ErrInvalidAlgorithms):
			h.handleError(w, "Invalid algorithm selection", err, traceID, http.StatusBadRequest)
		default:
			h.handleError(w, "Failed to restart task", err, traceID, http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("Task restarted",
		zap.String("trace_id", traceID),
		zap.String("task_id", taskID),
		zap.String("algorithms", resp.Algorithms),
	)

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) report(w http.ResponseWriter, r *http.Request, traceID, taskID string) {
	resp, err := h.service.GenerateReport(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrTaskNotFound):
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
		case errors.Is(err, service.ErrNotCompleted):
			h.handleError(w, "Task is not completed", err, traceID, http.StatusConflict)
		default:
			h.handleError(w, "Failed to generate report", err, traceID, http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, resp)
}

func (h *TaskHandler) saveUpload(header *multipart.FileHeader, dir string) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := validation.ValidateImage(header, file); err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}

	return path, nil
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
