package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
)

const checkQueueKey = "activity:check_queue"

// QueueRepoImpl provides a concrete implementation for the CheckQueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
	key    string
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client, key: checkQueueKey}
}

var _ repository.CheckQueueRepository = (*QueueRepoImpl)(nil)

// Push adds a request to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, req entity.CheckRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, r.key, b).Err()
}

// Pop removes and returns the oldest request from the right side of the list.
// An empty list is reported as repository.ErrQueueEmpty.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.CheckRequest, error) {
	raw, err := r.client.RPop(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	var req entity.CheckRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("malformed check request in queue: %w", err)
	}
	return &req, nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
