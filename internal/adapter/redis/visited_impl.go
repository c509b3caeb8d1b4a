package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/pkg/utils"
)

const checkedURLPrefix = "activity:checked:"

// CheckedRepoImpl provides a concrete implementation for the CheckedRepository interface using Redis.
type CheckedRepoImpl struct {
	client *redis.Client
}

// NewCheckedRepo creates a new instance of CheckedRepoImpl.
func NewCheckedRepo(client *redis.Client) *CheckedRepoImpl {
	return &CheckedRepoImpl{client: client}
}

var _ repository.CheckedRepository = (*CheckedRepoImpl)(nil)

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *CheckedRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", checkedURLPrefix, utils.HashURL(url))
}

// MarkChecked sets the URL key with an expiry; SETEX is atomic.
func (r *CheckedRepoImpl) MarkChecked(ctx context.Context, url string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", expiry).Err()
}

// IsChecked checks if a URL was checked recently by checking for the existence of its key.
func (r *CheckedRepoImpl) IsChecked(ctx context.Context, url string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(url)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// RemoveChecked removes a URL from the checked set, used for forced checks.
func (r *CheckedRepoImpl) RemoveChecked(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}

func (r *CheckedRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
