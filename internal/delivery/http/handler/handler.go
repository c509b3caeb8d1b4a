package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/delivery/http/request"
	"github.com/user/activity-monitor/internal/delivery/http/response"
	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/scorer"
	"github.com/user/activity-monitor/internal/usecase"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Pinger is a dependency reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the use cases and stores the handlers need.
type Deps struct {
	CheckManager  usecase.CheckManager
	Facilities    repository.FacilityRepository
	Events        repository.EventRepository
	Manual        *usecase.ManualTransition
	Reclassifier  *dormancy.Reclassifier
	Scorer        *scorer.Scorer
	ThresholdDays int
	// Pingers are checked by /api/health, keyed by name.
	Pingers map[string]Pinger
	Logger  *zap.Logger
}

type Handler struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Scorer == nil {
		deps.Scorer = scorer.New(scorer.DefaultConfig())
	}
	if deps.ThresholdDays <= 0 {
		deps.ThresholdDays = dormancy.DefaultThresholdDays
	}
	return &Handler{deps: deps, logger: deps.Logger, now: time.Now}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.deps.Pingers))}
	code := http.StatusOK
	for name, p := range h.deps.Pingers {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.writeJSON(w, code, resp)
}

func (h *Handler) HandleSubmitCheck(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	checkID, err := h.deps.CheckManager.Submit(r.Context(), entity.CheckRequest{
		FacilityID: req.FacilityID,
		URL:        req.URL,
		Name:       req.Name,
		Force:      req.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidURL):
			h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		case errors.Is(err, usecase.ErrRecentlyChecked):
			h.writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("failed to submit check", zap.String("url", req.URL), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitCheckResponse{
		Status:  "success",
		Message: "Facility submitted for activity check",
		CheckID: checkID,
	})
}

func (h *Handler) HandleGetCheckStatus(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	facilityID := r.URL.Query().Get("facility_id")
	if rawURL == "" && facilityID == "" {
		h.writeJSONError(w, "url or facility_id query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.deps.CheckManager.GetStatus(r.Context(), facilityID, rawURL)
	if err != nil {
		h.logger.Error("failed to get check status", zap.String("url", rawURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if status.CurrentStatus == "not_found" {
		h.writeJSONError(w, "Check status not found", http.StatusNotFound)
		return
	}

	resp := response.CheckStatusResponse{
		URL:            status.URL,
		CurrentStatus:  status.CurrentStatus,
		LastCheckedAt:  status.LastCheckedAt,
		FacilityStatus: status.FacilityStatus,
	}
	if status.LastEventDate != nil {
		d := status.LastEventDate.Format(entity.DateLayout)
		resp.LastEventDate = &d
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListFacilities(w http.ResponseWriter, r *http.Request) {
	var filter *entity.FacilityStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := entity.FacilityStatus(s)
		if !st.Valid() {
			h.writeJSONError(w, "Invalid status", http.StatusBadRequest)
			return
		}
		filter = &st
	}

	facilities, err := h.deps.Facilities.ListFacilities(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list facilities", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if facilities == nil {
		facilities = []*entity.Facility{}
	}
	h.writeJSON(w, http.StatusOK, response.FacilitiesResponse{Count: len(facilities), Facilities: facilities})
}

func (h *Handler) HandleListTransitions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.deps.Facilities.GetFacility(r.Context(), id); err != nil {
		h.writeRepoError(w, "failed to load facility", err)
		return
	}
	transitions, err := h.deps.Facilities.ListTransitions(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, "failed to list transitions", err)
		return
	}
	if transitions == nil {
		transitions = []entity.StatusTransition{}
	}
	h.writeJSON(w, http.StatusOK, response.TransitionsResponse{FacilityID: id, Transitions: transitions})
}

func (h *Handler) HandleCloseFacility(w http.ResponseWriter, r *http.Request) {
	h.handleManual(w, r, h.deps.Manual.Close)
}

func (h *Handler) HandleReactivateFacility(w http.ResponseWriter, r *http.Request) {
	h.handleManual(w, r, h.deps.Manual.Reactivate)
}

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, reason string) (*entity.StatusTransition, error)) {
	var req request.TransitionRequest
	// An empty body is allowed; the default reason is used.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	tr, err := apply(r.Context(), chi.URLParam(r, "id"), req.Reason)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, tr)
	case errors.Is(err, dormancy.ErrTerminal), errors.Is(err, dormancy.ErrInvalidTransition),
		errors.Is(err, repository.ErrStatusConflict):
		h.writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		h.writeRepoError(w, "failed to apply transition", err)
	}
}

func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.EventFilter{FacilityID: q.Get("facility_id"), Limit: defaultEventLimit}

	if s := q.Get("min_score"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			h.writeJSONError(w, "Invalid min_score", http.StatusBadRequest)
			return
		}
		filter.MinScore = &n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeJSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = min(n, maxEventLimit)
	}

	events, err := h.deps.Events.ListEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*entity.EventRecord{}
	}
	h.writeJSON(w, http.StatusOK, response.EventsResponse{Count: len(events), Events: events})
}

func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req request.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	last, now, err := req.Dates(h.now())
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	threshold := h.deps.ThresholdDays
	if req.ThresholdDays != nil {
		if *req.ThresholdDays < 1 {
			h.writeJSONError(w, "threshold_days must be positive", http.StatusBadRequest)
			return
		}
		threshold = *req.ThresholdDays
	}
	h.writeJSON(w, http.StatusOK, response.ClassifyResponse{Status: dormancy.Classify(last, now, threshold)})
}

func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req request.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	e := req.Event()
	score := h.deps.Scorer.Score(e)
	h.writeJSON(w, http.StatusOK, response.ScoreResponse{
		Score:     score,
		Label:     scorer.Label(score),
		EventType: h.deps.Scorer.DetectType(e),
	})
}

func (h *Handler) HandleReclassify(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Reclassifier.Run(r.Context(), h.now())
	if err != nil {
		h.logger.Error("reclassification failed", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHealthReport(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.deps.Facilities.ListFacilities(r.Context(), nil)
	if err != nil {
		h.logger.Error("failed to list facilities", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	report, err := dormancy.BuildHealthReport(r.Context(), facilities, h.deps.Facilities.GetLatestEventDate, h.now())
	if err != nil {
		h.logger.Error("failed to build health report", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.writeJSONError(w, "Facility not found", http.StatusNotFound)
		return
	}
	h.logger.Error(msg, zap.Error(err))
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
