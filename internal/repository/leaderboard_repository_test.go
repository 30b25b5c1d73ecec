package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/learning-center-api/internal/models"
)

func newLeaderboardRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeaderboardRepositoryAggregateDay(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "score_sum", "rating_count", "first_rated_at"}).
		AddRow("s1", 18, 2, day.Add(9*time.Hour)).
		AddRow("s2", 9, 1, day.Add(10*time.Hour)).
		AddRow("s3", 15, 3, day.Add(8*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SUM(r.score)::float / COUNT(*) DESC, MIN(r.created_at) ASC, MIN(r.id) ASC")).
		WithArgs(day).
		WillReturnRows(rows)

	scores, err := repo.AggregateDay(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	require.Equal(t, "s1", scores[0].StudentID)
	require.Equal(t, 18, scores[0].ScoreSum)
	require.Equal(t, 2, scores[0].RatingCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryReplaceDate(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := []models.LeaderboardEntry{
		{StudentID: "s1", Date: day, AverageScore: 9.0, Rank: 1, TotalRatings: 2},
		{StudentID: "s2", Date: day, AverageScore: 5.0, Rank: 2, TotalRatings: 3},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_leaderboard WHERE date = $1")).
		WithArgs(day).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_leaderboard")).
		WithArgs(sqlmock.AnyArg(), "s1", day, 9.0, 1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_leaderboard")).
		WithArgs(sqlmock.AnyArg(), "s2", day, 5.0, 2, 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leaderboard_runs")).
		WithArgs(day, sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceDate(context.Background(), day, entries))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryReplaceDateEmpty(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_leaderboard WHERE date = $1")).
		WithArgs(day).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leaderboard_runs")).
		WithArgs(day, sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceDate(context.Background(), day, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryReplaceDateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	entries := []models.LeaderboardEntry{{StudentID: "s1", Date: day, AverageScore: 7.0, Rank: 1, TotalRatings: 1}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_leaderboard WHERE date = $1")).
		WithArgs(day).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_leaderboard")).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := repo.ReplaceDate(context.Background(), day, entries)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryListByDateLimit(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	// s2 has no group, so the LEFT JOIN yields NULL for group_name.
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "average_score", "rank", "total_ratings", "created_at", "student_code", "student_name", "group_name"}).
		AddRow("e1", "s1", day, 9.0, 1, 2, time.Now(), "ST-001", "Alice", "Group A").
		AddRow("e2", "s2", day, 8.0, 2, 1, time.Now(), "ST-002", "Bob", nil).
		AddRow("e3", "s3", day, 5.0, 3, 3, time.Now(), "ST-003", "Carol", "Group B")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.rank ASC LIMIT 3")).
		WithArgs(day).
		WillReturnRows(rows)

	entries, err := repo.ListByDate(context.Background(), day, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "ST-001", entries[0].StudentCode)
	require.Equal(t, "Alice", entries[0].StudentName)
	require.NotNil(t, entries[0].GroupName)
	require.Equal(t, "Group A", *entries[0].GroupName)
	require.Nil(t, entries[1].GroupName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryFindRunMissing(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT date, calculated_at, entry_count FROM leaderboard_runs WHERE date = $1 LIMIT 1")).
		WithArgs(day).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRun(context.Background(), day)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardRepositoryAggregateMonthAssignsRanks(t *testing.T) {
	db, mock, cleanup := newLeaderboardRepoMock(t)
	defer cleanup()
	repo := NewLeaderboardRepository(db)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "student_code", "student_name", "average_score", "total_ratings"}).
		AddRow("s1", "ST-001", "Alice", 9.5, 12).
		AddRow("s2", "ST-002", "Bob", 8.1, 10)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.rating_date >= $1 AND r.rating_date < $2")).
		WithArgs(start, end).
		WillReturnRows(rows)

	entries, err := repo.AggregateMonth(context.Background(), 2025, time.March)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 2, entries[1].Rank)
	require.NoError(t, mock.ExpectationsWereMet())
}
