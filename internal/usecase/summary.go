package usecase

import "github.com/user/activity-monitor/internal/entity"

// BatchSummary totals the outcomes of a batch of facility checks.
type BatchSummary struct {
	TotalFacilities int `json:"total_facilities"`
	Active          int `json:"active"`
	Dormant         int `json:"dormant"`
	New             int `json:"new"`
	Unknown         int `json:"unknown"`
	Error           int `json:"error"`
	TotalEvents     int `json:"total_events"`
}

// Summarize counts snapshots by status. Nil snapshots count as errors.
func Summarize(snaps []*entity.FacilityActivitySnapshot) BatchSummary {
	s := BatchSummary{TotalFacilities: len(snaps)}
	for _, snap := range snaps {
		if snap == nil {
			s.Error++
			continue
		}
		s.TotalEvents += len(snap.Events)
		switch snap.Status {
		case entity.StatusActive:
			s.Active++
		case entity.StatusDormant:
			s.Dormant++
		case entity.StatusNew:
			s.New++
		case entity.StatusUnknown:
			s.Unknown++
		default:
			s.Error++
		}
	}
	return s
}
