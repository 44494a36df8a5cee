package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/pushups/internal/auth"
	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/domain"
	"example.com/pushups/internal/persistence/memory"
)

type testServer struct {
	mux   *http.ServeMux
	clock *clock.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC))
	service := domain.NewService(memory.NewRepository(), domain.WithClock(fake))
	mux := http.NewServeMux()
	NewHandler(service).RegisterRoutes(mux)
	return &testServer{mux: mux, clock: fake}
}

func claimsFor(subject string, scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &auth.Claims{Subject: subject, Scopes: set, ExpiresAt: time.Now().Add(time.Hour)}
}

func (s *testServer) do(t *testing.T, claims *auth.Claims, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestRegisterTaskCompleteFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := claimsFor("42", auth.ScopeProgressWrite)

	rr := srv.do(t, owner, http.MethodPost, "/v1/users", RegisterRequest{ID: 42, Name: "Ann"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	user := decodeBody[UserView](t, rr)
	require.Equal(t, 1, user.Level)
	require.Equal(t, 30, user.DailyGoal)
	require.Equal(t, "Beginner", user.LevelName)

	rr = srv.do(t, owner, http.MethodPost, "/v1/users/42/task", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	task := decodeBody[TaskView](t, rr)
	require.GreaterOrEqual(t, task.Amount, 5)
	require.LessOrEqual(t, task.Amount, 15)
	require.NotEmpty(t, task.Message)

	rr = srv.do(t, owner, http.MethodPost, "/v1/users/42/complete", map[string]int{"amount": 12})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	outcome := decodeBody[OutcomeView](t, rr)
	require.Equal(t, 12, outcome.User.TotalCount)
	require.Equal(t, 1, outcome.User.ConsecutiveDays)
	require.Equal(t, 12, outcome.Record.Amount)
	require.Equal(t, 18, outcome.Remaining)
	require.Equal(t, "2026-06-01", outcome.User.LastActivityDate)

	rr = srv.do(t, owner, http.MethodGet, "/v1/users/42/today", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	today := decodeBody[TodayView](t, rr)
	require.Equal(t, 12, today.Done)
	require.Equal(t, 18, today.Remaining)
	require.False(t, today.GoalMet)
}

func TestCompleteValidation(t *testing.T) {
	srv := newTestServer(t)
	owner := claimsFor("7", auth.ScopeProgressWrite)
	require.Equal(t, http.StatusOK, srv.do(t, owner, http.MethodPost, "/v1/users", RegisterRequest{ID: 7, Name: "Bo"}).Code)

	rr := srv.do(t, owner, http.MethodPost, "/v1/users/7/complete", map[string]int{"amount": -3})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "validation_failed", decodeBody[map[string]string](t, rr)["type"])

	rr = srv.do(t, owner, http.MethodPost, "/v1/users/7/complete", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, owner, http.MethodPost, "/v1/users/7/complete", map[string]int{"amount": 0})
	require.Equal(t, http.StatusOK, rr.Code, "zero is an explicit skip")

	rr = srv.do(t, owner, http.MethodPut, "/v1/users/7/level", map[string]int{"level": 9})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, owner, http.MethodPut, "/v1/users/7/level", map[string]int{"level": 4})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 75, decodeBody[UserView](t, rr).DailyGoal)
}

func TestUnknownUserIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	owner := claimsFor("99", auth.ScopeProgressWrite)

	rr := srv.do(t, owner, http.MethodPost, "/v1/users/99/complete", map[string]int{"amount": 10})
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", decodeBody[map[string]string](t, rr)["type"])

	rr = srv.do(t, owner, http.MethodGet, "/v1/users/99/stats", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthorization(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusOK, srv.do(t, claimsFor("5", auth.ScopeProgressWrite), http.MethodPost, "/v1/users", RegisterRequest{ID: 5, Name: "Cy"}).Code)

	require.Equal(t, http.StatusUnauthorized, srv.do(t, nil, http.MethodGet, "/v1/users/5", nil).Code)
	require.Equal(t, http.StatusForbidden, srv.do(t, claimsFor("5", auth.ScopeProgressRead), http.MethodPost, "/v1/users/5/skip", nil).Code)
	require.Equal(t, http.StatusForbidden, srv.do(t, claimsFor("6", auth.ScopeProgressRead), http.MethodGet, "/v1/users/5", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, claimsFor("5", auth.ScopeProgressRead), http.MethodGet, "/v1/users/5", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, claimsFor("ops", auth.ScopeProgressRead, auth.ScopeProgressAdmin), http.MethodGet, "/v1/users/5", nil).Code)
	require.Equal(t, http.StatusBadRequest, srv.do(t, claimsFor("5", auth.ScopeProgressRead), http.MethodGet, "/v1/users/abc", nil).Code)
}

func TestStatsAndHistoryPagination(t *testing.T) {
	srv := newTestServer(t)
	owner := claimsFor("3", auth.ScopeProgressWrite)
	require.Equal(t, http.StatusOK, srv.do(t, owner, http.MethodPost, "/v1/users", RegisterRequest{ID: 3, Name: "Di"}).Code)

	for day := 0; day < 7; day++ {
		rr := srv.do(t, owner, http.MethodPost, "/v1/users/3/complete", map[string]int{"amount": 30})
		require.Equal(t, http.StatusOK, rr.Code)
		if day == 6 {
			outcome := decodeBody[OutcomeView](t, rr)
			require.NotNil(t, outcome.Promotion)
			require.Equal(t, 2, outcome.Promotion.NewLevel)
			require.Equal(t, 45, outcome.Promotion.NewGoal)
			require.NotNil(t, outcome.Achievement)
			require.Equal(t, 7, outcome.Achievement.Days)
		}
		srv.clock.Advance(24 * time.Hour)
	}

	rr := srv.do(t, owner, http.MethodGet, "/v1/users/3/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[StatsView](t, rr)
	require.Equal(t, 7, stats.DaysCount)
	require.Equal(t, 210, stats.TotalAmount)
	require.Equal(t, 30.0, stats.AveragePerDay)
	require.Equal(t, "Novice", stats.User.LevelName)
	require.NotEmpty(t, stats.Achievement)

	rr = srv.do(t, owner, http.MethodGet, "/v1/users/3/activities?limit=4", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[ListRecordsResponse](t, rr)
	require.Len(t, page.Items, 4)
	require.NotEmpty(t, page.NextCursor)
	require.Equal(t, "2026-06-07", page.Items[0].Date)

	rr = srv.do(t, owner, http.MethodGet, "/v1/users/3/activities?limit=4&cursor="+page.NextCursor, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rest := decodeBody[ListRecordsResponse](t, rr)
	require.Len(t, rest.Items, 3)
	require.Empty(t, rest.NextCursor)

	rr = srv.do(t, owner, http.MethodGet, "/v1/users/3/activities?cursor=not-base64!", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, nil, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}
