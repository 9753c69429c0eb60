package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/config"
	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/reconciliation"
	"github.com/libertypay/cardrecon/internal/repository"
	"github.com/libertypay/cardrecon/internal/source"
	"github.com/libertypay/cardrecon/internal/summary"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	engine      *reconciliation.Engine
	metricsRepo *repository.MetricsRepo
	auditRepo   *repository.AuditRepo
	sinks       []source.Sink
	summarizer  summary.Summarizer
	cfg         *config.Root
	log         *logrus.Logger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- RunReconciliation ---

type runRequest struct {
	RunDate    string `json:"run_date,omitempty"`
	DaysOffset *int   `json:"days_offset,omitempty"`
}

type runResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	RunID   string             `json:"run_id"`
	RunDate string             `json:"run_date"`
	Metrics *domain.RunMetrics `json:"metrics"`
	Summary string             `json:"summary"`
}

// RunReconciliation runs the full pipeline for one run date, persists the
// report, exports the audit tables and returns metrics plus summary.
func (h *Handlers) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	daysOffset := h.cfg.Recon.DaysOffset
	if req.DaysOffset != nil {
		if *req.DaysOffset < 0 {
			writeError(w, http.StatusBadRequest, "days_offset must be >= 0")
			return
		}
		daysOffset = *req.DaysOffset
	}

	var runDate time.Time
	if req.RunDate != "" {
		var err error
		runDate, err = time.Parse(domain.DateOnly, req.RunDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "run_date must be YYYY-MM-DD")
			return
		}
	} else {
		// Settlement reports trail transactions, so the default run looks
		// back a full offset window from today.
		runDate = time.Now().UTC().AddDate(0, 0, -daysOffset)
	}

	result, err := h.engine.Run(r.Context(), runDate, daysOffset)
	if err != nil {
		var srcErr *domain.SourceUnavailableError
		var integErr *domain.DataIntegrityError
		switch {
		case errors.As(err, &srcErr):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.As(err, &integErr):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := h.metricsRepo.Save(result.RunID, result.Metrics); err != nil {
		writeError(w, http.StatusInternalServerError, "persist metrics: "+err.Error())
		return
	}

	for _, sink := range h.sinks {
		for _, t := range result.Audit {
			if err := sink.WriteTable(r.Context(), result.Metrics.RunDate, t); err != nil {
				// Audit export failure does not invalidate the computed
				// metrics; surface it in logs and keep going.
				h.log.WithError(err).Warnf("[api] audit export failed for %s", t.Name)
			}
		}
	}

	text := h.summarizer.Summarize(result.Metrics)
	if err := h.auditRepo.SaveSummary(result.Metrics.RunDate, text); err != nil {
		h.log.WithError(err).Warn("[api] summary persist failed")
	}

	writeJSON(w, http.StatusOK, runResponse{
		Status:  "success",
		Message: "reconciliation completed",
		RunID:   result.RunID,
		RunDate: result.Metrics.RunDate,
		Metrics: result.Metrics,
		Summary: text,
	})
}

// --- GetMetrics ---

func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	runDate := chi.URLParam(r, "runDate")
	if _, err := time.Parse(domain.DateOnly, runDate); err != nil {
		writeError(w, http.StatusBadRequest, "run date must be YYYY-MM-DD")
		return
	}

	m, err := h.metricsRepo.GetByRunDate(runDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no metrics for "+runDate)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- GetLatestMetrics ---

func (h *Handlers) GetLatestMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.metricsRepo.Latest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no metrics stored yet")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "service is running",
	})
}

// --- GetConfig ---

// GetConfig exposes the non-sensitive runtime configuration.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"days_offset":      h.cfg.Recon.DaysOffset,
		"revenue_policy":   h.cfg.Recon.RevenuePolicy,
		"ambiguity_policy": h.cfg.Recon.AmbiguityPolicy,
		"merchant_ids": map[string]string{
			"interswitch_unity": h.cfg.Merchants.InterswitchUnity,
			"nibss_unity":       h.cfg.Merchants.NIBSSUnity,
			"nibss_parallex":    h.cfg.Merchants.NIBSSParallex,
		},
		"tables": map[string]string{
			"card":                h.cfg.Tables.Card,
			"nibss_settlement":    h.cfg.Tables.NIBSSSettlement,
			"isw_settlement":      h.cfg.Tables.ISWSettlement,
			"parallex_settlement": h.cfg.Tables.ParallexSettlement,
			"bank_unity":          h.cfg.Tables.BankUnity,
			"bank_parallex":       h.cfg.Tables.BankParallex,
		},
	})
}
