package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

// ErrQueueEmpty is returned by Pop when nothing is queued.
var ErrQueueEmpty = errors.New("check queue is empty")

// CheckQueueRepository defines the interface for a FIFO queue of facility checks.
type CheckQueueRepository interface {
	// Push adds a request to the end of the queue.
	Push(ctx context.Context, req entity.CheckRequest) error
	// Pop removes and returns the oldest request, or ErrQueueEmpty.
	Pop(ctx context.Context) (*entity.CheckRequest, error)
	// Size returns the current number of queued requests.
	Size(ctx context.Context) (int64, error)
}

// CheckedRepository defines the interface for remembering recently checked facility URLs.
type CheckedRepository interface {
	// MarkChecked records url as checked for the given duration.
	MarkChecked(ctx context.Context, url string, expiry time.Duration) error
	// IsChecked reports whether url was checked within its expiry window.
	IsChecked(ctx context.Context, url string) (bool, error)
	// RemoveChecked forgets url, used for forced checks.
	RemoveChecked(ctx context.Context, url string) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
