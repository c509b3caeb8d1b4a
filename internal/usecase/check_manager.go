package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/pkg/metrics"
	"github.com/user/activity-monitor/pkg/utils"
)

var (
	ErrRecentlyChecked = errors.New("facility has been checked recently and force is false")
	ErrInvalidURL      = errors.New("invalid facility url")
)

const (
	// DefaultCheckedExpiry is how long a submitted facility is not queued again.
	DefaultCheckedExpiry = 72 * time.Hour
)

// CheckManager defines the interface for submitting and inspecting facility checks.
type CheckManager interface {
	Submit(ctx context.Context, req entity.CheckRequest) (string, error)
	GetStatus(ctx context.Context, facilityID, url string) (*entity.CheckStatus, error)
}

type checkManager struct {
	checkedRepo   repository.CheckedRepository
	queueRepo     repository.CheckQueueRepository
	facilityRepo  repository.FacilityRepository
	checkedExpiry time.Duration
	logger        *zap.Logger
}

// NewCheckManager creates a new CheckManager use case.
func NewCheckManager(
	checkedRepo repository.CheckedRepository,
	queueRepo repository.CheckQueueRepository,
	facilityRepo repository.FacilityRepository,
	checkedExpiry time.Duration,
	logger *zap.Logger,
) CheckManager {
	if checkedExpiry <= 0 {
		checkedExpiry = DefaultCheckedExpiry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkManager{
		checkedRepo:   checkedRepo,
		queueRepo:     queueRepo,
		facilityRepo:  facilityRepo,
		checkedExpiry: checkedExpiry,
		logger:        logger,
	}
}

func (uc *checkManager) Submit(ctx context.Context, req entity.CheckRequest) (string, error) {
	normalized, err := utils.NormalizeFacilityURL(req.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.URL = normalized
	if req.FacilityID == "" {
		req.FacilityID = FacilityID(req.Ref())
	}
	checkID := utils.HashURL(req.URL)

	if req.Force {
		if err := uc.checkedRepo.RemoveChecked(ctx, req.URL); err != nil {
			// Continue anyway, as this is not a critical failure
			uc.logger.Warn("failed to remove checked key for forced check", zap.String("url", req.URL), zap.Error(err))
		}
	} else {
		isChecked, err := uc.checkedRepo.IsChecked(ctx, req.URL)
		if err != nil {
			return "", err
		}
		if isChecked {
			return checkID, ErrRecentlyChecked
		}
	}

	if err := uc.queueRepo.Push(ctx, req); err != nil {
		return "", err
	}
	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.ChecksInQueue.Set(float64(size))
	}

	if err := uc.checkedRepo.MarkChecked(ctx, req.URL, uc.checkedExpiry); err != nil {
		// The request is queued but may be queued again before it is processed.
		uc.logger.Error("failed to mark facility as checked after queueing", zap.String("url", req.URL), zap.Error(err))
	}

	return checkID, nil
}

func (uc *checkManager) GetStatus(ctx context.Context, facilityID, url string) (*entity.CheckStatus, error) {
	if normalized, err := utils.NormalizeFacilityURL(url); err == nil {
		url = normalized
	}
	if facilityID == "" && url != "" {
		facilityID = FacilityID(entity.FacilityRef{URL: url})
	}

	f, err := uc.facilityRepo.GetFacility(ctx, facilityID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		uc.logger.Error("error finding facility", zap.String("facility_id", facilityID), zap.Error(err))
		// Don't return yet, continue checking other states
	}
	if f != nil && f.LastCheckedAt != nil {
		if url == "" {
			url = f.Website
		}
		return &entity.CheckStatus{
			URL:            url,
			CurrentStatus:  "checked",
			LastCheckedAt:  f.LastCheckedAt,
			FacilityStatus: f.Status,
			LastEventDate:  f.LastEventDate,
		}, nil
	}

	if url != "" {
		isChecked, err := uc.checkedRepo.IsChecked(ctx, url)
		if err != nil {
			return nil, err
		}
		if isChecked {
			return &entity.CheckStatus{
				URL:           url,
				CurrentStatus: "pending",
			}, nil
		}
	}

	return &entity.CheckStatus{
		URL:           url,
		CurrentStatus: "not_found",
	}, nil
}
