package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/learning-center-api/internal/models"
)

// LeaderboardRepository provides database access for daily leaderboard
// snapshots and their calculation runs.
type LeaderboardRepository struct {
	db *sqlx.DB
}

// NewLeaderboardRepository creates a new instance of LeaderboardRepository.
func NewLeaderboardRepository(db *sqlx.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// AggregateDay returns per-student score aggregates for the ratings issued
// on a calendar date. Rows come back in final ranking order: average score
// descending, then earliest rating, then smallest rating id as the stable
// last resort.
func (r *LeaderboardRepository) AggregateDay(ctx context.Context, date time.Time) ([]models.StudentDayScore, error) {
	const query = `
        SELECT
            r.student_id,
            SUM(r.score) AS score_sum,
            COUNT(*) AS rating_count,
            MIN(r.created_at) AS first_rated_at
        FROM ratings r
        WHERE r.rating_date = $1
        GROUP BY r.student_id
        ORDER BY SUM(r.score)::float / COUNT(*) DESC, MIN(r.created_at) ASC, MIN(r.id) ASC`
	var rows []models.StudentDayScore
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("aggregate day ratings: %w", err)
	}
	return rows, nil
}

// ReplaceDate atomically replaces the leaderboard for a date: existing
// entries are deleted, the new set is inserted, and the run marker is
// upserted. Running it twice with the same inputs leaves the same rows.
func (r *LeaderboardRepository) ReplaceDate(ctx context.Context, date time.Time, entries []models.LeaderboardEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin leaderboard transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const deleteQuery = `DELETE FROM daily_leaderboard WHERE date = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, date); err != nil {
		return fmt.Errorf("clear leaderboard entries: %w", err)
	}

	const insertQuery = `INSERT INTO daily_leaderboard (id, student_id, date, average_score, rank, total_ratings, created_at)
        VALUES (:id, :student_id, :date, :average_score, :rank, :total_ratings, :created_at)`
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, entries[i]); err != nil {
			return fmt.Errorf("insert leaderboard entry: %w", err)
		}
	}

	const runQuery = `INSERT INTO leaderboard_runs (date, calculated_at, entry_count)
        VALUES ($1, $2, $3)
        ON CONFLICT (date) DO UPDATE SET calculated_at = EXCLUDED.calculated_at, entry_count = EXCLUDED.entry_count`
	if _, err := tx.ExecContext(ctx, runQuery, date, now, len(entries)); err != nil {
		return fmt.Errorf("record leaderboard run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit leaderboard transaction: %w", err)
	}
	return nil
}

const leaderboardSelectColumns = `
    e.id, e.student_id, e.date, e.average_score, e.rank, e.total_ratings, e.created_at,
    s.student_code AS student_code,
    u.full_name AS student_name,
    g.name AS group_name`

const leaderboardBaseQuery = `
    FROM daily_leaderboard e
    JOIN students s ON s.id = e.student_id
    JOIN users u ON u.id = s.user_id
    LEFT JOIN groups g ON g.id = s.group_id`

// ListByDate returns the stored leaderboard for a date in rank order.
func (r *LeaderboardRepository) ListByDate(ctx context.Context, date time.Time, limit int) ([]models.LeaderboardEntry, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.date = $1 ORDER BY e.rank ASC", leaderboardSelectColumns, leaderboardBaseQuery)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, date); err != nil {
		return nil, fmt.Errorf("list leaderboard by date: %w", err)
	}
	return entries, nil
}

// FindRun returns the calculation marker for a date, or sql.ErrNoRows when
// the leaderboard has never been calculated for it.
func (r *LeaderboardRepository) FindRun(ctx context.Context, date time.Time) (*models.LeaderboardRun, error) {
	const query = `SELECT date, calculated_at, entry_count FROM leaderboard_runs WHERE date = $1 LIMIT 1`
	var run models.LeaderboardRun
	if err := r.db.GetContext(ctx, &run, query, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leaderboard run: %w", err)
	}
	return &run, nil
}

// AggregateMonth computes a month's standings straight from ratings rather
// than from the daily snapshots, so late recalculations of a single day
// never leave the month view stale.
func (r *LeaderboardRepository) AggregateMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlyLeaderboardEntry, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	const query = `
        SELECT
            r.student_id,
            s.student_code AS student_code,
            u.full_name AS student_name,
            SUM(r.score)::float / COUNT(*) AS average_score,
            COUNT(*) AS total_ratings
        FROM ratings r
        JOIN students s ON s.id = r.student_id
        JOIN users u ON u.id = s.user_id
        WHERE r.rating_date >= $1 AND r.rating_date < $2
        GROUP BY r.student_id, s.student_code, u.full_name
        ORDER BY SUM(r.score)::float / COUNT(*) DESC, MIN(r.created_at) ASC, MIN(r.id) ASC`
	var entries []models.MonthlyLeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, start, end); err != nil {
		return nil, fmt.Errorf("aggregate month ratings: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
