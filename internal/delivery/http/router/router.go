package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/change-analysis-service/internal/delivery/http/handler"
	"github.com/user/change-analysis-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)

		r.Route("/v1/changes", func(r chi.Router) {
			r.Use(chimw.Timeout(90 * time.Second))
			r.Get("/health", h.HandleChangesHealth)
			r.Post("/analyze", h.HandleAnalyzeChange)
			r.Post("/report", h.HandleChangeReport)
			r.Post("/jobs", h.HandleSubmitJob)
			r.Get("/jobs/{jobID}", h.HandleGetJobStatus)
		})

		r.Route("/v1/extract", func(r chi.Router) {
			r.Get("/health", h.HandleExtractHealth)
			r.Post("/html", h.HandleExtractHTML)
		})

		r.Post("/v1/snapshots", h.HandleCaptureSnapshot)
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
