package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/affiliate-monitor/internal/pipeline"
	"github.com/ignite/affiliate-monitor/internal/storage"
)

// Handlers holds the dependencies for all HTTP handlers
type Handlers struct {
	pipeline  *pipeline.Pipeline
	store     *storage.Store
	startedAt time.Time
}

// NewHandlers creates the handler set
func NewHandlers(p *pipeline.Pipeline, store *storage.Store) *Handlers {
	return &Handlers{
		pipeline:  p,
		store:     store,
		startedAt: time.Now(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck reports process liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// RunAnalysis executes one synchronous analysis pass over the posted
// snapshot and caches the result as the latest report.
func (h *Handlers) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var input pipeline.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid snapshot payload: "+err.Error())
		return
	}

	report := h.pipeline.Analyze(input)

	if h.store != nil {
		if err := h.store.SaveReport(r.Context(), report); err != nil {
			// The analysis succeeded; a cache failure is a warning, not a 500.
			log.Printf("[api] cache analysis result: %v", err)
			report.Warnings = append(report.Warnings, "result cache unavailable; this report is not persisted")
		}
	}

	respondJSON(w, http.StatusOK, report)
}

// latestReport fetches the cached report or writes the appropriate error.
func (h *Handlers) latestReport(w http.ResponseWriter, r *http.Request) *pipeline.Report {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "result cache not configured")
		return nil
	}
	report, err := h.store.LatestReport(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch latest analysis: "+err.Error())
		return nil
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "no analysis has run yet")
		return nil
	}
	return report
}

// LatestAnalysis returns the full cached report
func (h *Handlers) LatestAnalysis(w http.ResponseWriter, r *http.Request) {
	if report := h.latestReport(w, r); report != nil {
		respondJSON(w, http.StatusOK, report)
	}
}

// DailyMetrics returns the daily series of the latest report
func (h *Handlers) DailyMetrics(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"daily":  report.Summary.Daily,
		"totals": report.Summary.Totals,
	})
}

// SubIDMetrics returns per-sub-id rollups and performance scores
func (h *Handlers) SubIDMetrics(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stats":       report.Summary.SubIDs,
		"performance": report.AIData.SubIDs,
	})
}

// PlatformMetrics returns per-platform rollups and performance scores
func (h *Handlers) PlatformMetrics(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stats":       report.Summary.Platforms,
		"performance": report.AIData.Platforms,
	})
}

// Trends returns trend detections, patterns and projections
func (h *Handlers) Trends(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trends":      report.AIData.Trends,
		"patterns":    report.AIData.Patterns,
		"predictions": report.AIData.Predictions,
	})
}

// BudgetPlan returns the latest budget reallocation plan
func (h *Handlers) BudgetPlan(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	if report.AIData.BudgetOptimization == nil {
		respondError(w, http.StatusNotFound, "latest analysis produced no budget plan")
		return
	}
	respondJSON(w, http.StatusOK, report.AIData.BudgetOptimization)
}

// Recommendations returns the synthesized recommendations
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	respondJSON(w, http.StatusOK, report.AIData.Recommendations)
}

// Alerts returns the latest alerts with operator flags applied
func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	report := h.latestReport(w, r)
	if report == nil {
		return
	}
	alerts, err := h.store.ApplyAlertFlags(r.Context(), report.AIData.Alerts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "apply alert flags: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// MarkAlertRead flags an alert as read
func (h *Handlers) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "result cache not configured")
		return
	}
	if err := h.store.MarkAlertRead(r.Context(), alertID); err != nil {
		respondError(w, http.StatusInternalServerError, "mark alert read: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read", "alert_id": alertID})
}

// DismissAlert flags an alert as dismissed
func (h *Handlers) DismissAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "result cache not configured")
		return
	}
	if err := h.store.DismissAlert(r.Context(), alertID); err != nil {
		respondError(w, http.StatusInternalServerError, "dismiss alert: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "dismissed", "alert_id": alertID})
}
