package api

import (
	"net/http"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

func periodParam(r *http.Request) domain.TargetPeriod {
	if period := r.URL.Query().Get("period"); period != "" {
		return domain.TargetPeriod(period)
	}
	return domain.PeriodWeekly
}

func (h *Handler) activeTarget(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	target, err := h.service.ActiveTarget(r.Context(), claims.Subject, periodParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTargetView(*target))
}

func (h *Handler) createTarget(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req TargetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := h.service.CreateTarget(r.Context(), domain.TargetInput{
		UserID:      claims.Subject,
		Type:        domain.TargetType(req.Type),
		Value:       req.Value,
		Description: req.Description,
		Period:      domain.TargetPeriod(req.Period),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTargetView(*target))
}

func (h *Handler) targetHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	history, err := h.service.TargetHistory(r.Context(), claims.Subject, periodParam(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	items := make([]TargetView, 0, len(history))
	for _, target := range history {
		items = append(items, toTargetView(target))
	}
	writeJSON(w, http.StatusOK, map[string][]TargetView{"items": items})
}

func (h *Handler) updateTarget(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req TargetPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := h.service.UpdateTarget(r.Context(), claims.Subject, r.PathValue("id"), req.toPatch())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTargetView(*target))
}

func (h *Handler) deactivateTarget(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateTarget(r.Context(), claims.Subject, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
