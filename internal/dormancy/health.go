package dormancy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

// UnknownPrefecture groups facilities without a prefecture.
const UnknownPrefecture = "unknown"

// LatestEventFunc looks up the newest event date of a facility.
type LatestEventFunc func(ctx context.Context, facilityID string) (*time.Time, error)

// DormantFacility is one row of the dormant list in a HealthReport.
type DormantFacility struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefecture string     `json:"prefecture"`
	LastEvent  *time.Time `json:"last_event"`
}

// HealthReport summarises facility statuses overall and per prefecture.
type HealthReport struct {
	CheckDate    time.Time                                `json:"check_date"`
	Total        int                                      `json:"total"`
	Active       int                                      `json:"active"`
	Dormant      int                                      `json:"dormant"`
	New          int                                      `json:"new"`
	Closed       int                                      `json:"closed"`
	ByPrefecture map[string]map[entity.FacilityStatus]int `json:"by_prefecture"`
	DormantList  []DormantFacility                        `json:"dormant_list"`
}

// BuildHealthReport counts facilities by status and lists dormant ones with
// their last event, oldest first.
func BuildHealthReport(ctx context.Context, facilities []*entity.Facility, latest LatestEventFunc, now time.Time) (*HealthReport, error) {
	rep := &HealthReport{
		CheckDate:    now.UTC(),
		Total:        len(facilities),
		ByPrefecture: make(map[string]map[entity.FacilityStatus]int),
		DormantList:  []DormantFacility{},
	}

	for _, f := range facilities {
		switch f.Status {
		case entity.StatusActive:
			rep.Active++
		case entity.StatusDormant:
			rep.Dormant++
		case entity.StatusNew:
			rep.New++
		case entity.StatusClosed:
			rep.Closed++
		}

		pref := f.Prefecture
		if pref == "" {
			pref = UnknownPrefecture
		}
		if rep.ByPrefecture[pref] == nil {
			rep.ByPrefecture[pref] = make(map[entity.FacilityStatus]int)
		}
		rep.ByPrefecture[pref][f.Status]++

		if f.Status != entity.StatusDormant {
			continue
		}
		last, err := latest(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("latest event of %s: %w", f.ID, err)
		}
		rep.DormantList = append(rep.DormantList, DormantFacility{
			ID:         f.ID,
			Name:       f.Name,
			Prefecture: pref,
			LastEvent:  last,
		})
	}

	sort.SliceStable(rep.DormantList, func(i, j int) bool {
		a, b := rep.DormantList[i].LastEvent, rep.DormantList[j].LastEvent
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return rep, nil
}
