package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 10 * time.Minute
)

// StatusRecord is the secondary status source written on every task
// transition. Postgres stays authoritative; pollers reconcile the two.
type StatusRecord struct {
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
}

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Set(ctx context.Context, taskID string, rec StatusRecord) error {
	rec.UpdatedAt = time.Now()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKeyPrefix+taskID, data, statusTTL).Err()
}
