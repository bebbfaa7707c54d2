package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"imageInspector/api/database"
)

const (
	statusKeyPrefix  = "task:status:"
	restartKeyPrefix = "task:restart:lock:"
	statusTTL        = 10 * time.Minute

	// RestartLockTTL bounds how long a restart lock can be held, so a
	// crashed holder cannot wedge a task permanently.
	RestartLockTTL = 60 * time.Second
)

// StatusRecord mirrors the record the worker writes on each transition.
type StatusRecord struct {
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
}

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, taskID string) (*StatusRecord, error) {
	data, err := sc.cache.Get(ctx, statusKeyPrefix+taskID)
	if err != nil {
		return nil, err
	}

	var rec StatusRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode status record: %w", err)
	}
	return &rec, nil
}

func (sc *StatusCache) Set(ctx context.Context, taskID string, rec StatusRecord) error {
	rec.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return sc.cache.Set(ctx, statusKeyPrefix+taskID, data, statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, taskID string) error {
	return sc.cache.Del(ctx, statusKeyPrefix+taskID)
}

// AcquireRestartLock takes the per-task restart lock. It reports false when
// another restart currently holds the lock; the caller must reject, not
// queue, the attempt.
func (sc *StatusCache) AcquireRestartLock(ctx context.Context, taskID string) (bool, error) {
	return sc.cache.SetNX(ctx, restartKeyPrefix+taskID, "1", RestartLockTTL)
}

func (sc *StatusCache) ReleaseRestartLock(ctx context.Context, taskID string) error {
	return sc.cache.Del(ctx, restartKeyPrefix+taskID)
}
