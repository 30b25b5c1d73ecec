package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
)

type leaderboardRepoStub struct {
	scores  []models.StudentDayScore
	stored  map[string][]models.LeaderboardEntry
	runs    map[string]*models.LeaderboardRun
	monthly []models.MonthlyLeaderboardEntry

	replaceCalls int
}

func newLeaderboardRepoStub() *leaderboardRepoStub {
	return &leaderboardRepoStub{
		stored: make(map[string][]models.LeaderboardEntry),
		runs:   make(map[string]*models.LeaderboardRun),
	}
}

func (r *leaderboardRepoStub) AggregateDay(ctx context.Context, date time.Time) ([]models.StudentDayScore, error) {
	return r.scores, nil
}

func (r *leaderboardRepoStub) ReplaceDate(ctx context.Context, date time.Time, entries []models.LeaderboardEntry) error {
	r.replaceCalls++
	key := date.Format("2006-01-02")
	r.stored[key] = entries
	r.runs[key] = &models.LeaderboardRun{Date: date, CalculatedAt: time.Now().UTC(), EntryCount: len(entries)}
	return nil
}

func (r *leaderboardRepoStub) ListByDate(ctx context.Context, date time.Time, limit int) ([]models.LeaderboardEntry, error) {
	entries := r.stored[date.Format("2006-01-02")]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *leaderboardRepoStub) FindRun(ctx context.Context, date time.Time) (*models.LeaderboardRun, error) {
	run, ok := r.runs[date.Format("2006-01-02")]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return run, nil
}

func (r *leaderboardRepoStub) AggregateMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlyLeaderboardEntry, error) {
	return r.monthly, nil
}

func newLeaderboardServiceForTest(repo *leaderboardRepoStub) *LeaderboardService {
	cache := NewCacheService(nil, nil, 0, zap.NewNop(), false)
	return NewLeaderboardService(repo, cache, nil, zap.NewNop())
}

func TestLeaderboardCalculateRanksByAverageScore(t *testing.T) {
	day := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := newLeaderboardRepoStub()
	// The repo returns rows pre-ordered by average, earliest first rating
	// breaking ties. s1 and s2 both average 9.0 but s1 was rated earlier.
	repo.scores = []models.StudentDayScore{
		{StudentID: "s1", ScoreSum: 18, RatingCount: 2, FirstRatedAt: day.Add(-2 * time.Hour)},
		{StudentID: "s2", ScoreSum: 9, RatingCount: 1, FirstRatedAt: day.Add(-1 * time.Hour)},
		{StudentID: "s3", ScoreSum: 15, RatingCount: 3, FirstRatedAt: day.Add(-3 * time.Hour)},
	}

	svc := newLeaderboardServiceForTest(repo)
	result, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	require.Equal(t, "s1", result.Entries[0].StudentID)
	require.Equal(t, 1, result.Entries[0].Rank)
	require.InDelta(t, 9.0, result.Entries[0].AverageScore, 1e-9)

	require.Equal(t, "s2", result.Entries[1].StudentID)
	require.Equal(t, 2, result.Entries[1].Rank)
	require.InDelta(t, 9.0, result.Entries[1].AverageScore, 1e-9)

	require.Equal(t, "s3", result.Entries[2].StudentID)
	require.Equal(t, 3, result.Entries[2].Rank)
	require.InDelta(t, 5.0, result.Entries[2].AverageScore, 1e-9)

	// Time of day is discarded.
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), result.Date)

	// Averages conserve the day's score mass: sum of average*count equals
	// the sum of the raw scores (18+9+15).
	var mass float64
	for _, e := range result.Entries {
		mass += e.AverageScore * float64(e.TotalRatings)
	}
	require.InDelta(t, 42.0, mass, 1e-9)
}

func TestLeaderboardCalculateEmptyDayStoresRun(t *testing.T) {
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	repo := newLeaderboardRepoStub()

	svc := newLeaderboardServiceForTest(repo)
	result, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)
	require.Empty(t, result.Entries)

	// The empty day is still marked calculated, so reads return an empty
	// list instead of a not-calculated error.
	got, err := svc.Get(context.Background(), day, 0)
	require.NoError(t, err)
	require.Empty(t, got.Entries)
}

func TestLeaderboardCalculateIsIdempotent(t *testing.T) {
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	repo := newLeaderboardRepoStub()
	repo.scores = []models.StudentDayScore{
		{StudentID: "s1", ScoreSum: 20, RatingCount: 2, FirstRatedAt: day},
	}

	svc := newLeaderboardServiceForTest(repo)
	first, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)
	second, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)

	require.Equal(t, 2, repo.replaceCalls)
	require.Equal(t, first.Entries, second.Entries)
	require.Len(t, repo.stored[day.Format("2006-01-02")], 1)
}

func TestLeaderboardGetNotCalculated(t *testing.T) {
	repo := newLeaderboardRepoStub()
	svc := newLeaderboardServiceForTest(repo)

	_, err := svc.Get(context.Background(), time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), 0)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrNotCalculated.Code, appErr.Code)
}

func TestLeaderboardTopThreeShorterList(t *testing.T) {
	// A past date, so the podium must honor the requested day rather
	// than assume today.
	day := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	repo := newLeaderboardRepoStub()
	repo.scores = []models.StudentDayScore{
		{StudentID: "s1", ScoreSum: 10, RatingCount: 1, FirstRatedAt: day},
		{StudentID: "s2", ScoreSum: 8, RatingCount: 1, FirstRatedAt: day},
	}

	svc := newLeaderboardServiceForTest(repo)
	_, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)

	result, err := svc.TopThree(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	require.Equal(t, day, result.Date)
}

func TestLeaderboardMonthlyValidation(t *testing.T) {
	svc := newLeaderboardServiceForTest(newLeaderboardRepoStub())

	_, err := svc.Monthly(context.Background(), 2025, 0)
	require.Error(t, err)
	_, err = svc.Monthly(context.Background(), 2025, 13)
	require.Error(t, err)
	_, err = svc.Monthly(context.Background(), 1990, 5)
	require.Error(t, err)

	_, err = svc.Monthly(context.Background(), 2025, 5)
	require.NoError(t, err)
}

func TestLeaderboardExportUnknownFormat(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	repo := newLeaderboardRepoStub()
	svc := newLeaderboardServiceForTest(repo)
	_, err := svc.Calculate(context.Background(), day)
	require.NoError(t, err)

	_, _, err = svc.Export(context.Background(), day, "xlsx")
	require.Error(t, err)

	payload, contentType, err := svc.Export(context.Background(), day, "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)
	require.NotEmpty(t, payload)

	payload, contentType, err = svc.Export(context.Background(), day, "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", contentType)
	require.NotEmpty(t, payload)
}
