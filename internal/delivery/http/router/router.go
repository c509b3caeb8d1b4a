package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/delivery/http/handler"
	"github.com/user/activity-monitor/internal/delivery/http/middleware"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checks", h.HandleSubmitCheck)
		r.Get("/checks/status", h.HandleGetCheckStatus)

		r.Get("/facilities", h.HandleListFacilities)
		r.Get("/facilities/{id}/transitions", h.HandleListTransitions)
		r.Post("/facilities/{id}/close", h.HandleCloseFacility)
		r.Post("/facilities/{id}/reactivate", h.HandleReactivateFacility)

		r.Get("/events", h.HandleListEvents)
		r.Post("/classify", h.HandleClassify)
		r.Post("/score", h.HandleScore)
		r.Post("/reclassify", h.HandleReclassify)
		r.Get("/reports/health", h.HandleHealthReport)
	})

	return r
}
