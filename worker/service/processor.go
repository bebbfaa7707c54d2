package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"imageInspector/worker/cache"
	"imageInspector/worker/classify"
	"imageInspector/worker/evaluate"
	"imageInspector/worker/kafka"
	"imageInspector/worker/metrics"
	"imageInspector/worker/report"
	"imageInspector/worker/repository"
)

// Task statuses as persisted. The sequence within one run is
// pending -> processing -> completed|failed; processing is never skipped.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Progress checkpoints within a run.
const (
	progressStarted   = 10
	progressCompleted = 100
)

// StatusCache is the secondary status sink written alongside the database.
type StatusCache interface {
	Set(ctx context.Context, taskID string, rec cache.StatusRecord) error
}

// Processor owns the worker side of the task lifecycle: it moves a task
// through processing into completed or failed and persists the report
// artifacts of a successful run.
type Processor struct {
	repo       repository.Repository
	cache      StatusCache
	evaluator  *evaluate.Evaluator
	thresholds classify.Thresholds
	reportDir  string
	logger     *zap.Logger
}

func NewProcessor(repo repository.Repository, statusCache StatusCache, thresholds classify.Thresholds, reportDir string, logger *zap.Logger) *Processor {
	return &Processor{
		repo:       repo,
		cache:      statusCache,
		evaluator:  evaluate.NewEvaluator(thresholds, logger),
		thresholds: thresholds,
		reportDir:  reportDir,
		logger:     logger,
	}
}

// Process runs one evaluation task to completion or failure. Evaluation
// failures scoped to single images never surface here; only the complete
// absence of usable input or an unparseable request fails the task.
func (p *Processor) Process(ctx context.Context, msg *kafka.TaskMessage) error {
	p.logger.Info("Starting evaluation task",
		zap.String("task_id", msg.TaskID),
		zap.String("trace_id", msg.TraceID),
		zap.String("algorithms", msg.Algorithms),
		zap.Int("images", len(msg.ImagePaths)),
	)

	algorithms, err := metrics.ParseAlgorithms(msg.Algorithms)
	if err != nil {
		return p.fail(ctx, msg.TaskID, fmt.Sprintf("invalid algorithm selection: %v", err))
	}

	p.setStatus(ctx, msg.TaskID, StatusProcessing, progressStarted, "evaluation started")

	rs, err := p.evaluator.Run(evaluate.Input{
		TemplateDir:    msg.TemplateDir,
		CandidatePaths: msg.ImagePaths,
		Algorithms:     algorithms,
	})
	if err != nil {
		if errors.Is(err, evaluate.ErrNoUsableInput) {
			return p.fail(ctx, msg.TaskID, "no usable images for evaluation")
		}
		return p.fail(ctx, msg.TaskID, fmt.Sprintf("evaluation failed: %v", err))
	}

	p.persistReports(ctx, msg.TaskID, rs)

	p.setStatus(ctx, msg.TaskID, StatusCompleted, progressCompleted, "evaluation completed")

	p.logger.Info("Evaluation task completed",
		zap.String("task_id", msg.TaskID),
		zap.Int("algorithms_succeeded", len(rs.SucceededAlgorithms())),
	)
	return nil
}

// persistReports writes one report per successful algorithm plus a combined
// report when more than one succeeded. Persistence errors are logged and do
// not fail the otherwise-successful evaluation.
func (p *Processor) persistReports(ctx context.Context, taskID string, rs *evaluate.ResultSet) {
	succeeded := rs.SucceededAlgorithms()

	combos := make([][]metrics.Algorithm, 0, len(succeeded)+1)
	for _, alg := range succeeded {
		combos = append(combos, []metrics.Algorithm{alg})
	}
	if len(succeeded) > 1 {
		combos = append(combos, succeeded)
	}

	dir := filepath.Join(p.reportDir, "task_"+taskID)
	for _, combo := range combos {
		r := report.Aggregate(taskID, rs, combo, p.thresholds)

		filePath, err := report.WriteHTML(r, dir)
		if err != nil {
			p.logger.Error("Failed to render report",
				zap.String("task_id", taskID),
				zap.String("kind", r.Kind),
				zap.Error(err),
			)
		}

		payload, err := json.Marshal(r)
		if err != nil {
			p.logger.Error("Failed to encode report payload",
				zap.String("task_id", taskID),
				zap.String("kind", r.Kind),
				zap.Error(err),
			)
			continue
		}

		rec := &repository.ReportRecord{
			TaskID:   taskID,
			Kind:     r.Kind,
			Title:    r.Title,
			FilePath: filePath,
			Payload:  payload,
		}
		if err := p.repo.SaveReport(ctx, rec); err != nil {
			p.logger.Error("Failed to save report record",
				zap.String("task_id", taskID),
				zap.String("kind", r.Kind),
				zap.Error(err),
			)
		}
	}
}

func (p *Processor) fail(ctx context.Context, taskID, reason string) error {
	p.logger.Error("Evaluation task failed",
		zap.String("task_id", taskID),
		zap.String("reason", reason),
	)
	p.setStatus(ctx, taskID, StatusFailed, 0, reason)
	return fmt.Errorf("task %s failed: %s", taskID, reason)
}

func (p *Processor) setStatus(ctx context.Context, taskID, status string, progress float64, message string) {
	// failure_reason is only meaningful for failed tasks.
	reason := ""
	if status == StatusFailed {
		reason = message
	}
	if err := p.repo.UpdateTaskStatus(ctx, taskID, status, progress, reason); err != nil {
		p.logger.Error("Failed to persist task status",
			zap.String("task_id", taskID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
	if err := p.cache.Set(ctx, taskID, cache.StatusRecord{
		Status:   status,
		Progress: progress,
		Message:  message,
	}); err != nil {
		p.logger.Warn("Failed to update status cache",
			zap.String("task_id", taskID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
