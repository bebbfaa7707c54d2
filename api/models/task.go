package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// statusRank orders statuses by how far a task has advanced. Used when the
// cache and the database disagree: the more advanced state wins.
var statusRank = map[TaskStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusFailed:     2,
	StatusCompleted:  3,
}

// MoreAdvanced reports whether a is further along the lifecycle than b.
func MoreAdvanced(a, b TaskStatus) bool {
	return statusRank[a] > statusRank[b]
}

// Restartable reports whether a restart is allowed from the status.
// Completed tasks are final; everything else may be rewound to pending.
func Restartable(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusFailed:
		return true
	default:
		return false
	}
}

type Task struct {
	ID            string
	TraceID       string
	Name          string
	Algorithms    string
	ImagePaths    []string
	TemplateDir   string
	Status        TaskStatus
	Progress      float64
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}
