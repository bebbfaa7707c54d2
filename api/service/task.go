package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"imageInspector/api/cache"
	"imageInspector/api/dto"
	"imageInspector/api/kafka"
	"imageInspector/api/models"
	"imageInspector/api/repository"
)

var (
	ErrNoImages          = errors.New("at least one image path is required")
	ErrInvalidAlgorithms = errors.New("invalid algorithm selection")
	ErrRestartInProgress = errors.New("restart already in progress")
	ErrNotRestartable    = errors.New("task cannot be restarted")
	ErrNotCompleted      = errors.New("task is not completed")
)

const reportTitle = "Composite Quality Inspection"

// refreshInterval bounds how often a status read may reconcile the cache
// against the database for the same task.
const refreshInterval = time.Second

// StatusCache is the slice of the cache the service needs.
type StatusCache interface {
	Get(ctx context.Context, taskID string) (*cache.StatusRecord, error)
	Set(ctx context.Context, taskID string, rec cache.StatusRecord) error
	AcquireRestartLock(ctx context.Context, taskID string) (bool, error)
	ReleaseRestartLock(ctx context.Context, taskID string) error
}

type TaskService struct {
	repo     repository.Repository
	cache    StatusCache
	producer kafka.Producer
	topic    string

	mu          sync.Mutex
	lastRefresh map[string]time.Time
}

func NewTaskService(repo repository.Repository, cache StatusCache, producer kafka.Producer, topic string) *TaskService {
	return &TaskService{
		repo:        repo,
		cache:       cache,
		producer:    producer,
		topic:       topic,
		lastRefresh: make(map[string]time.Time),
	}
}

func (s *TaskService) CreateTask(ctx context.Context, traceID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if len(req.ImagePaths) == 0 {
		return nil, ErrNoImages
	}

	algorithms, err := normalizeAlgorithms(req.Algorithms)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		TraceID:     traceID,
		Name:        req.Name,
		Algorithms:  algorithms,
		ImagePaths:  req.ImagePaths,
		TemplateDir: req.TemplateDir,
		Status:      models.StatusPending,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, task.ID, cache.StatusRecord{
		Status:   string(models.StatusPending),
		Progress: 0,
	})

	msg := &kafka.TaskMessage{
		TaskID:      task.ID,
		TraceID:     traceID,
		Algorithms:  algorithms,
		ImagePaths:  req.ImagePaths,
		TemplateDir: req.TemplateDir,
	}
	if err := s.producer.SendTaskMessage(ctx, s.topic, msg); err != nil {
		return nil, err
	}

	return s.toResponse(task), nil
}

// GetTaskStatus answers from the cache when a recent read already reconciled
// this task. Otherwise it reads both stores and lets the more advanced status
// win: a worker transition seen only by one store must never be rolled back.
func (s *TaskService) GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error) {
	rec, cacheErr := s.cache.Get(ctx, taskID)

	if cacheErr == nil && !s.shouldRefresh(taskID) {
		return &dto.TaskResponse{
			ID:       taskID,
			Status:   rec.Status,
			Progress: rec.Progress,
		}, nil
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	if cacheErr == nil && models.MoreAdvanced(models.TaskStatus(rec.Status), task.Status) {
		reason := ""
		if models.TaskStatus(rec.Status) == models.StatusFailed {
			reason = rec.Message
		}
		if err := s.repo.UpdateTaskStatus(ctx, taskID, models.TaskStatus(rec.Status), rec.Progress, reason); err != nil {
			return nil, err
		}
		task.Status = models.TaskStatus(rec.Status)
		task.Progress = rec.Progress
		task.FailureReason = reason
	} else {
		s.cache.Set(ctx, taskID, cache.StatusRecord{
			Status:   string(task.Status),
			Progress: task.Progress,
			Message:  task.FailureReason,
		})
	}

	if task.Status == models.StatusCompleted {
		s.ensureReport(ctx, task)
	}

	return s.toResponse(task), nil
}

// RestartTask rewinds a task to pending and re-enqueues it. Only one restart
// per task may run at a time; a concurrent attempt is rejected outright.
func (s *TaskService) RestartTask(ctx context.Context, traceID, taskID string, req *dto.RestartTaskRequest) (*dto.TaskResponse, error) {
	locked, err := s.cache.AcquireRestartLock(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRestartInProgress
	}
	defer s.cache.ReleaseRestartLock(ctx, taskID)

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	if !models.Restartable(task.Status) {
		return nil, ErrNotRestartable
	}

	algorithms := task.Algorithms
	if req != nil && req.Algorithms != "" {
		algorithms, err = normalizeAlgorithms(req.Algorithms)
		if err != nil {
			return nil, err
		}
	}

	clearFailure := task.Status == models.StatusFailed
	if err := s.repo.ResetTask(ctx, taskID, algorithms, clearFailure); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, taskID, cache.StatusRecord{
		Status:   string(models.StatusPending),
		Progress: 0,
	})

	msg := &kafka.TaskMessage{
		TaskID:      taskID,
		TraceID:     traceID,
		Algorithms:  algorithms,
		ImagePaths:  task.ImagePaths,
		TemplateDir: task.TemplateDir,
	}
	if err := s.producer.SendTaskMessage(ctx, s.topic, msg); err != nil {
		return nil, err
	}

	task.Status = models.StatusPending
	task.Progress = 0
	task.Algorithms = algorithms
	if clearFailure {
		task.FailureReason = ""
	}

	return s.toResponse(task), nil
}

// GenerateReport records the report for a completed task. Repeated calls are
// no-ops; the response says whether this call created the record.
func (s *TaskService) GenerateReport(ctx context.Context, taskID string) (*dto.ReportResponse, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, dto.ErrTaskNotFound
		}
		return nil, err
	}

	if task.Status != models.StatusCompleted {
		return nil, ErrNotCompleted
	}

	kind, err := normalizeAlgorithms(task.Algorithms)
	if err != nil {
		kind = task.Algorithms
	}

	created, err := s.repo.EnsureReport(ctx, taskID, kind, reportTitle)
	if err != nil {
		return nil, err
	}

	message := "report already exists"
	if created {
		message = "report created"
	}

	return &dto.ReportResponse{
		TaskID:  taskID,
		Created: created,
		Message: message,
	}, nil
}

func (s *TaskService) ensureReport(ctx context.Context, task *models.Task) {
	exists, err := s.repo.ReportExists(ctx, task.ID)
	if err != nil || exists {
		return
	}
	kind, err := normalizeAlgorithms(task.Algorithms)
	if err != nil {
		return
	}
	s.repo.EnsureReport(ctx, task.ID, kind, reportTitle)
}

func (s *TaskService) shouldRefresh(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if last, ok := s.lastRefresh[taskID]; ok && now.Sub(last) < refreshInterval {
		return false
	}
	s.lastRefresh[taskID] = now
	return true
}

// normalizeAlgorithms turns a selection string into the sorted set of
// algorithm digits. "all" and "5" select every algorithm; an empty selection
// defaults to every algorithm.
func normalizeAlgorithms(selection string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(selection))
	if trimmed == "" || trimmed == "all" || trimmed == "5" {
		return "1234", nil
	}

	seen := make(map[rune]bool)
	var digits []rune
	for _, ch := range trimmed {
		switch ch {
		case ',', ' ':
			continue
		case '1', '2', '3', '4':
			if !seen[ch] {
				seen[ch] = true
				digits = append(digits, ch)
			}
		default:
			return "", ErrInvalidAlgorithms
		}
	}
	if len(digits) == 0 {
		return "", ErrInvalidAlgorithms
	}

	sort.Slice(digits, func(i, j int) bool { return digits[i] < digits[j] })
	return string(digits), nil
}

func (s *TaskService) toResponse(task *models.Task) *dto.TaskResponse {
	var completedAt *string
	if task.CompletedAt != nil {
		formatted := task.CompletedAt.Format("2006-01-02T15:04:05Z")
		completedAt = &formatted
	}

	return &dto.TaskResponse{
		ID:            task.ID,
		TraceID:       task.TraceID,
		Name:          task.Name,
		Algorithms:    task.Algorithms,
		Status:        string(task.Status),
		Progress:      task.Progress,
		FailureReason: task.FailureReason,
		CreatedAt:     task.CreatedAt.Format("2006-01-02T15:04:05Z"),
		CompletedAt:   completedAt,
	}
}
