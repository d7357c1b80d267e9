// Package api exposes the HTTP surface of carbontrackr.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siyabuilds/carbontrackr/internal/account"
	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/auth"
	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/persistence"
	"github.com/siyabuilds/carbontrackr/internal/realtime"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, input account.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (*account.LoginResult, error)
}

// Analyzer recomputes a user's current-week summary on demand.
type Analyzer interface {
	RunCurrentWeekAnalysis(ctx context.Context, userID string, ref time.Time) (analysis.RunResult, error)
}

// TipStream subscribes to a user's realtime tip events.
type TipStream interface {
	Subscribe(ctx context.Context, userID string) (<-chan realtime.Event, error)
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the logger used for server errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithTipStream enables GET /api/tips/stream.
func WithTipStream(stream TipStream) Option {
	return func(h *Handler) { h.tips = stream }
}

// WithHeartbeat sets the keep-alive interval of tip streams.
func WithHeartbeat(interval time.Duration) Option {
	return func(h *Handler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// Handler coordinates HTTP requests with the domain, account and analysis services.
type Handler struct {
	service   *domain.Service
	accounts  Accounts
	analyzer  Analyzer
	tips      TipStream
	logger    *slog.Logger
	now       func() time.Time
	heartbeat time.Duration
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, accounts Accounts, analyzer Analyzer, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		accounts:  accounts,
		analyzer:  analyzer,
		logger:    slog.Default().With("component", "api"),
		now:       func() time.Time { return time.Now().UTC() },
		heartbeat: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("GET /api/validate-token", h.validateToken)

	mux.HandleFunc("GET /api/activities", h.listActivities)
	mux.HandleFunc("POST /api/activities", h.logActivity)
	mux.HandleFunc("DELETE /api/activities", h.deleteAllActivities)
	mux.HandleFunc("DELETE /api/activities/{id}", h.deleteActivity)
	mux.HandleFunc("GET /api/streaks", h.streak)

	mux.HandleFunc("GET /api/targets", h.activeTarget)
	mux.HandleFunc("POST /api/targets", h.createTarget)
	mux.HandleFunc("GET /api/targets/history", h.targetHistory)
	mux.HandleFunc("PUT /api/targets/{id}", h.updateTarget)
	mux.HandleFunc("DELETE /api/targets/{id}", h.deactivateTarget)

	mux.HandleFunc("GET /api/summaries/current", h.currentSummary)
	mux.HandleFunc("GET /api/summaries/{weekStart}", h.summaryForWeek)
	mux.HandleFunc("POST /api/summaries/refresh", h.refreshSummary)

	mux.HandleFunc("GET "+auth.StreamPath, h.tipStream)

	mux.HandleFunc("GET /healthz", healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), account.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	result, err := h.accounts.Login(r.Context(), identifier, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserView(result.User),
	})
}

func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TokenView{
		Valid:     true,
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt,
	})
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	var req LogActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	activity, err := h.service.LogActivity(r.Context(), domain.LogActivityInput{
		UserID:     claims.Subject,
		Category:   req.Category,
		Activity:   req.Activity,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.ListActivities(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		items = append(items, toActivityView(activity))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), claims.Subject, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAllActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	deleted, err := h.service.DeleteAllActivities(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) streak(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	streak, err := h.service.Streak(r.Context(), claims.Subject, h.now())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrTargetNotFound),
		errors.Is(err, domain.ErrSummaryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, account.ErrUserExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
