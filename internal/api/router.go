package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/config"
	"github.com/libertypay/cardrecon/internal/reconciliation"
	"github.com/libertypay/cardrecon/internal/repository"
	"github.com/libertypay/cardrecon/internal/source"
	"github.com/libertypay/cardrecon/internal/summary"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	engine *reconciliation.Engine,
	metricsRepo *repository.MetricsRepo,
	auditRepo *repository.AuditRepo,
	sinks []source.Sink,
	summarizer summary.Summarizer,
	cfg *config.Root,
	log *logrus.Logger,
) http.Handler {
	h := &Handlers{
		engine:      engine,
		metricsRepo: metricsRepo,
		auditRepo:   auditRepo,
		sinks:       sinks,
		summarizer:  summarizer,
		cfg:         cfg,
		log:         log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reconciliation/run", h.RunReconciliation)

		r.Get("/metrics/latest", h.GetLatestMetrics)
		r.Get("/metrics/{runDate}", h.GetMetrics)

		r.Get("/config", h.GetConfig)
	})

	return r
}
