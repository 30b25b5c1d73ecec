package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/middleware"
	"github.com/edupulse/learning-center-api/internal/models"
	"github.com/edupulse/learning-center-api/internal/service"
)

type leaderboardRepoFake struct {
	stored map[string][]models.LeaderboardEntry
	runs   map[string]*models.LeaderboardRun
}

func newLeaderboardRepoFake() *leaderboardRepoFake {
	return &leaderboardRepoFake{
		stored: make(map[string][]models.LeaderboardEntry),
		runs:   make(map[string]*models.LeaderboardRun),
	}
}

func (r *leaderboardRepoFake) AggregateDay(ctx context.Context, date time.Time) ([]models.StudentDayScore, error) {
	return []models.StudentDayScore{
		{StudentID: "s1", ScoreSum: 18, RatingCount: 2, FirstRatedAt: date},
	}, nil
}

func (r *leaderboardRepoFake) ReplaceDate(ctx context.Context, date time.Time, entries []models.LeaderboardEntry) error {
	key := date.Format("2006-01-02")
	r.stored[key] = entries
	r.runs[key] = &models.LeaderboardRun{Date: date, CalculatedAt: time.Now().UTC(), EntryCount: len(entries)}
	return nil
}

func (r *leaderboardRepoFake) ListByDate(ctx context.Context, date time.Time, limit int) ([]models.LeaderboardEntry, error) {
	entries := r.stored[date.Format("2006-01-02")]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *leaderboardRepoFake) FindRun(ctx context.Context, date time.Time) (*models.LeaderboardRun, error) {
	run, ok := r.runs[date.Format("2006-01-02")]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return run, nil
}

func (r *leaderboardRepoFake) AggregateMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlyLeaderboardEntry, error) {
	return []models.MonthlyLeaderboardEntry{
		{StudentID: "s1", StudentCode: "ST-001", StudentName: "Alice", AverageScore: 9.0, TotalRatings: 4},
	}, nil
}

func stubClaims(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
		c.Next()
	}
}

func buildLeaderboardRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cache := service.NewCacheService(nil, nil, 0, zap.NewNop(), false)
	svc := service.NewLeaderboardService(newLeaderboardRepoFake(), cache, nil, zap.NewNop())
	h := NewLeaderboardHandler(svc)

	r := gin.New()
	grp := r.Group("/leaderboard")
	grp.Use(stubClaims(role))
	grp.Use(middleware.WithResponseMeta())
	grp.GET("", h.Get)
	grp.GET("/top_three", h.TopThree)
	grp.GET("/monthly", h.Monthly)
	grp.POST("/calculate", middleware.RequireRoles(models.RoleAdmin), h.Calculate)
	grp.GET("/export", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Export)
	return r
}

func performRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func performJSONRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestLeaderboardGetRejectsBadDate(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleStudent)
	resp := performRequest(r, http.MethodGet, "/leaderboard?date=10-03-2025")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "INVALID_DATE")
}

func TestLeaderboardGetNotCalculated(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleStudent)
	resp := performRequest(r, http.MethodGet, "/leaderboard?date=2025-03-10")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "NOT_CALCULATED")
}

func TestLeaderboardCalculateThenGet(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleAdmin)

	resp := performRequest(r, http.MethodPost, "/leaderboard/calculate?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = performRequest(r, http.MethodGet, "/leaderboard?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"average_score":9`)
	require.Contains(t, resp.Body.String(), "calculated_at")
}

func TestLeaderboardCalculateAcceptsBodyDate(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleAdmin)

	resp := performJSONRequest(r, http.MethodPost, "/leaderboard/calculate", `{"date":"2025-03-10"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	// The body date was used, so that date reads back calculated.
	resp = performRequest(r, http.MethodGet, "/leaderboard?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"average_score":9`)

	resp = performJSONRequest(r, http.MethodPost, "/leaderboard/calculate", `{"date":"10-03-2025"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "INVALID_DATE")

	resp = performJSONRequest(r, http.MethodPost, "/leaderboard/calculate", `{"date":`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLeaderboardTopThreeHonorsDateParam(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleAdmin)

	resp := performRequest(r, http.MethodPost, "/leaderboard/calculate?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = performRequest(r, http.MethodGet, "/leaderboard/top_three?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"average_score":9`)

	// Today was never calculated, so the podium without a date is empty.
	resp = performRequest(r, http.MethodGet, "/leaderboard/top_three")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "NOT_CALCULATED")
}

func TestLeaderboardCalculateForbiddenForStudents(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleStudent)
	resp := performRequest(r, http.MethodPost, "/leaderboard/calculate?date=2025-03-10")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLeaderboardMonthlyDefaultsToCurrentMonth(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleTeacher)
	resp := performRequest(r, http.MethodGet, "/leaderboard/monthly")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "ST-001")
}

func TestLeaderboardExportSetsAttachmentHeaders(t *testing.T) {
	r := buildLeaderboardRouter(models.RoleTeacher)

	resp := performRequest(r, http.MethodPost, "/leaderboard/calculate?date=2025-03-10")
	require.Equal(t, http.StatusForbidden, resp.Code)

	admin := buildLeaderboardRouter(models.RoleAdmin)
	resp = performRequest(admin, http.MethodPost, "/leaderboard/calculate?date=2025-03-10")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = performRequest(admin, http.MethodGet, "/leaderboard/export?date=2025-03-10&format=csv")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	require.Contains(t, resp.Header().Get("Content-Disposition"), "leaderboard-2025-03-10.csv")
}
