package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/siyabuilds/carbontrackr/internal/account"
	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/auth"
	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/persistence/memory"
	"github.com/siyabuilds/carbontrackr/internal/realtime"
	"github.com/siyabuilds/carbontrackr/internal/tips"
)

var (
	tokenConfig = auth.Config{Secret: "secret", Issuer: "carbontrackr-test", TTL: time.Hour}
	// Wednesday of the week starting 2025-03-10.
	reference = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)
)

type testServer struct {
	handler http.Handler
	store   *memory.Store
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	orchestrator := analysis.NewOrchestrator(store, store, store, tips.Default(),
		analysis.WithLogger(logger),
		analysis.WithClock(func() time.Time { return reference }),
	)
	accounts := account.NewService(store, tokenConfig, orchestrator,
		account.WithLogger(logger),
		account.WithHashCost(bcrypt.MinCost),
	)
	service := domain.NewService(store, store, store)

	opts = append([]Option{WithLogger(logger), WithClock(func() time.Time { return reference })}, opts...)
	handler := NewHandler(service, accounts, orchestrator, opts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &testServer{handler: auth.NewMiddleware(tokenConfig, nil).Wrap(mux), store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) signUp(t *testing.T, username string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/register", "", RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/api/login", "", LoginRequest{Identifier: username, Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func requireErrorType(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decode[map[string]string](t, rr)
	require.Equal(t, code, body["type"])
	require.NotEmpty(t, body["detail"])
}

func TestRegisterLoginAndValidateToken(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "greta")

	rr := srv.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "other", Email: "GRETA@example.com", Password: "correct-horse"})
	requireErrorType(t, rr, http.StatusConflict, "conflict")

	rr = srv.do(t, http.MethodPost, "/api/login", "", LoginRequest{Email: "greta@example.com", Password: "wrong-horse"})
	requireErrorType(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = srv.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "ab", Email: "x@example.com", Password: "correct-horse"})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, http.MethodGet, "/api/validate-token", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[TokenView](t, rr)
	require.True(t, view.Valid)
	require.Equal(t, "greta", view.Username)
	require.NotEmpty(t, view.UserID)

	rr = srv.do(t, http.MethodGet, "/api/validate-token", "", nil)
	requireErrorType(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = srv.do(t, http.MethodGet, "/api/validate-token", "not-a-jwt", nil)
	requireErrorType(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestActivitiesLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "henry")
	other := srv.signUp(t, "irene")

	var ids []string
	for i, label := range []string{"Car (10km)", "Bus (10km)", "Train (10km)"} {
		rr := srv.do(t, http.MethodPost, "/api/activities", token, LogActivityRequest{
			Category:   "transport",
			Activity:   label,
			OccurredAt: reference.Add(-time.Duration(i+1) * time.Hour),
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		view := decode[ActivityView](t, rr)
		require.Equal(t, string(domain.CategoryTransport), view.Category)
		ids = append(ids, view.ActivityID)
	}

	rr := srv.do(t, http.MethodPost, "/api/activities", token, LogActivityRequest{Category: "Space", Activity: "Rocket"})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, http.MethodPost, "/api/activities", token, nil)
	requireErrorType(t, rr, http.StatusBadRequest, "invalid_request")

	rr = srv.do(t, http.MethodGet, "/api/activities?limit=2", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[ListActivitiesResponse](t, rr)
	require.Len(t, page.Items, 2)
	require.Equal(t, ids[0], page.Items[0].ActivityID, "newest first")
	require.NotEmpty(t, page.NextCursor)

	rr = srv.do(t, http.MethodGet, "/api/activities?limit=2&cursor="+page.NextCursor, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rest := decode[ListActivitiesResponse](t, rr)
	require.Len(t, rest.Items, 1)
	require.Equal(t, ids[2], rest.Items[0].ActivityID)
	require.Empty(t, rest.NextCursor)

	rr = srv.do(t, http.MethodGet, "/api/activities?cursor=not-base64!", token, nil)
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, http.MethodDelete, "/api/activities/"+ids[0], other, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	rr = srv.do(t, http.MethodDelete, "/api/activities/"+ids[0], token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/api/activities", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, map[string]int64{"deleted": 2}, decode[map[string]int64](t, rr))
}

func TestStreak(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "julia")

	for _, at := range []time.Time{reference.Add(-time.Hour), reference.AddDate(0, 0, -1)} {
		rr := srv.do(t, http.MethodPost, "/api/activities", token, LogActivityRequest{Category: "Food", Activity: "Vegan Meal", OccurredAt: at})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := srv.do(t, http.MethodGet, "/api/streaks", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	streak := decode[domain.Streak](t, rr)
	require.Len(t, streak.Days, 7)
	require.Equal(t, "2025-03-12", streak.Days[6].Date)
	require.Equal(t, 2, streak.CurrentStreak)
}

func TestTargetsFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "kevin")

	rr := srv.do(t, http.MethodGet, "/api/targets", token, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	rr = srv.do(t, http.MethodPost, "/api/targets", token, TargetRequest{Type: "percentage", Value: 150})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, http.MethodPost, "/api/targets", token, TargetRequest{Type: "percentage", Value: 10, Description: "eat less beef"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[TargetView](t, rr)
	require.True(t, created.IsActive)
	require.Equal(t, "weekly", created.Period)

	value := 15.0
	rr = srv.do(t, http.MethodPut, "/api/targets/"+created.TargetID, token, TargetPatchRequest{Value: &value})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 15.0, decode[TargetView](t, rr).Value)

	rr = srv.do(t, http.MethodGet, "/api/targets", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, created.TargetID, decode[TargetView](t, rr).TargetID)

	rr = srv.do(t, http.MethodGet, "/api/targets/history", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[map[string][]TargetView](t, rr)["items"], 1)

	rr = srv.do(t, http.MethodDelete, "/api/targets/"+created.TargetID, token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = srv.do(t, http.MethodGet, "/api/targets", token, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	rr = srv.do(t, http.MethodPut, "/api/targets/missing", token, TargetPatchRequest{Value: &value})
	requireErrorType(t, rr, http.StatusNotFound, "not_found")
}

func TestSummaries(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "laura")

	rr := srv.do(t, http.MethodGet, "/api/summaries/current", token, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	for _, label := range []string{"Beef (200g)", "Vegan Meal"} {
		rr = srv.do(t, http.MethodPost, "/api/activities", token, LogActivityRequest{Category: "Food", Activity: label, OccurredAt: reference.Add(-24 * time.Hour)})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr = srv.do(t, http.MethodPost, "/api/summaries/refresh", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := decode[domain.WeeklySummary](t, rr)
	require.InDelta(t, 5.9, summary.TotalValue, 1e-9)
	require.Equal(t, 2, summary.ActivitiesCount)
	require.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), summary.WeekStart)
	require.NotNil(t, summary.PersonalizedTip)

	rr = srv.do(t, http.MethodGet, "/api/summaries/current", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/api/summaries/2025-03-10", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/api/summaries/2025-03-03", token, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	rr = srv.do(t, http.MethodGet, "/api/summaries/last-week", token, nil)
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")
}

type stubTipStream struct {
	events []realtime.Event
	userID string
}

func (s *stubTipStream) Subscribe(_ context.Context, userID string) (<-chan realtime.Event, error) {
	s.userID = userID
	out := make(chan realtime.Event, len(s.events))
	for _, e := range s.events {
		out <- e
	}
	close(out)
	return out, nil
}

func TestTipStreamRelaysEvents(t *testing.T) {
	stream := &stubTipStream{events: []realtime.Event{{
		Kind:      realtime.KindWeeklyTip,
		WeeklyTip: &domain.PersonalizedTip{Category: domain.CategoryFood, Message: "Try a meat-free day", TipType: domain.TipImprovement},
	}}}
	srv := newTestServer(t, WithTipStream(stream))
	token := srv.signUp(t, "maria")

	rr := srv.do(t, http.MethodGet, "/api/tips/stream?token="+token, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	require.True(t, strings.Contains(rr.Body.String(), "event: weekly_tip\ndata: "), rr.Body.String())
	require.Contains(t, rr.Body.String(), "Try a meat-free day")
	require.NotEmpty(t, stream.userID)
}

func TestTipStreamDisabled(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signUp(t, "nadia")

	rr := srv.do(t, http.MethodGet, "/api/tips/stream", token, nil)
	requireErrorType(t, rr, http.StatusServiceUnavailable, "unavailable")
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}
