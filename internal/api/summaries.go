package api

import (
	"net/http"
	"time"
)

func (h *Handler) currentSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CurrentSummary(r.Context(), claims.Subject, h.now())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) summaryForWeek(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	weekStart, err := time.Parse(time.DateOnly, r.PathValue("weekStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "weekStart must be YYYY-MM-DD")
		return
	}
	summary, err := h.service.SummaryForWeek(r.Context(), claims.Subject, weekStart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// refreshSummary recomputes the caller's current week and returns the new
// summary. A user with no activities this week gets a 404 after a clean run.
func (h *Handler) refreshSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	now := h.now()
	result, err := h.analyzer.RunCurrentWeekAnalysis(r.Context(), claims.Subject, now)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if result.FailedUsers > 0 {
		writeError(w, http.StatusInternalServerError, "server_error", "summary refresh failed")
		return
	}
	summary, err := h.service.CurrentSummary(r.Context(), claims.Subject, now)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
