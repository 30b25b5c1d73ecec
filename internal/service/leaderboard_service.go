package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
	"github.com/edupulse/learning-center-api/pkg/export"
)

type leaderboardRepository interface {
	AggregateDay(ctx context.Context, date time.Time) ([]models.StudentDayScore, error)
	ReplaceDate(ctx context.Context, date time.Time, entries []models.LeaderboardEntry) error
	ListByDate(ctx context.Context, date time.Time, limit int) ([]models.LeaderboardEntry, error)
	FindRun(ctx context.Context, date time.Time) (*models.LeaderboardRun, error)
	AggregateMonth(ctx context.Context, year int, month time.Month) ([]models.MonthlyLeaderboardEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// LeaderboardResult is the payload served for a date's standings.
type LeaderboardResult struct {
	Date         time.Time                 `json:"date"`
	CalculatedAt time.Time                 `json:"calculated_at"`
	Entries      []models.LeaderboardEntry `json:"entries"`
}

// MonthlyLeaderboardResult is the payload served for a month's standings.
type MonthlyLeaderboardResult struct {
	Year    int                              `json:"year"`
	Month   int                              `json:"month"`
	Entries []models.MonthlyLeaderboardEntry `json:"entries"`
}

// LeaderboardService orchestrates daily leaderboard recalculation and reads.
type LeaderboardService struct {
	repo    leaderboardRepository
	cache   *CacheService
	metrics *MetricsService
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewLeaderboardService constructs the leaderboard service.
func NewLeaderboardService(repo leaderboardRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// Calculate rebuilds the leaderboard for a date from that day's ratings.
// The stored set is replaced wholesale, which makes the operation
// idempotent: recalculating an unchanged day rewrites identical standings.
// Students with no ratings that day simply do not appear.
func (s *LeaderboardService) Calculate(ctx context.Context, date time.Time) (*LeaderboardResult, error) {
	day := truncateToDay(date)
	start := time.Now()

	scores, err := s.repo.AggregateDay(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate ratings")
	}

	entries := make([]models.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, models.LeaderboardEntry{
			StudentID:    score.StudentID,
			Date:         day,
			AverageScore: float64(score.ScoreSum) / float64(score.RatingCount),
			Rank:         i + 1,
			TotalRatings: score.RatingCount,
		})
	}

	if err := s.repo.ReplaceDate(ctx, day, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store leaderboard")
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "leaderboard:*"); err != nil {
			s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveLeaderboardCalculation(time.Since(start))
	}

	s.logger.Info("leaderboard calculated",
		zap.Time("date", day),
		zap.Int("entries", len(entries)),
		zap.Duration("took", time.Since(start)))

	return &LeaderboardResult{Date: day, CalculatedAt: time.Now().UTC(), Entries: entries}, nil
}

// Get returns the stored leaderboard for a date. A date that was never
// calculated is an error; a calculated date with no participants returns an
// empty entry list.
func (s *LeaderboardService) Get(ctx context.Context, date time.Time, limit int) (*LeaderboardResult, error) {
	day := truncateToDay(date)

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", day.Format("2006-01-02"), limit)
	if s.cache.Enabled() {
		var cached LeaderboardResult
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	run, err := s.repo.FindRun(ctx, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotCalculated, "leaderboard has not been calculated for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check leaderboard run")
	}

	entries, err := s.repo.ListByDate(ctx, day, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaderboard")
	}

	result := &LeaderboardResult{Date: day, CalculatedAt: run.CalculatedAt, Entries: entries}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("failed to cache leaderboard", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return result, nil
}

// Today returns the current day's leaderboard.
func (s *LeaderboardService) Today(ctx context.Context) (*LeaderboardResult, error) {
	return s.Get(ctx, time.Now().UTC(), 0)
}

// TopThree returns the podium for a date. Fewer than three participants
// yields a shorter list, never padding.
func (s *LeaderboardService) TopThree(ctx context.Context, date time.Time) (*LeaderboardResult, error) {
	return s.Get(ctx, date, 3)
}

// Monthly computes standings over a calendar month directly from ratings.
func (s *LeaderboardService) Monthly(ctx context.Context, year, month int) (*MonthlyLeaderboardResult, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "month must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, "year is out of range")
	}

	cacheKey := fmt.Sprintf("leaderboard:monthly:%04d-%02d", year, month)
	if s.cache.Enabled() {
		var cached MonthlyLeaderboardResult
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	entries, err := s.repo.AggregateMonth(ctx, year, time.Month(month))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate month")
	}

	result := &MonthlyLeaderboardResult{Year: year, Month: month, Entries: entries}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("failed to cache monthly leaderboard", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return result, nil
}

// Export renders a date's standings as CSV or PDF.
func (s *LeaderboardService) Export(ctx context.Context, date time.Time, format string) ([]byte, string, error) {
	result, err := s.Get(ctx, date, 0)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Rank", "Student Code", "Student Name", "Group", "Average Score", "Ratings"},
	}
	for _, entry := range result.Entries {
		group := ""
		if entry.GroupName != nil {
			group = *entry.GroupName
		}
		dataset.Rows = append(dataset.Rows, []string{
			fmt.Sprintf("%d", entry.Rank),
			entry.StudentCode,
			entry.StudentName,
			group,
			fmt.Sprintf("%.2f", entry.AverageScore),
			fmt.Sprintf("%d", entry.TotalRatings),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		title := fmt.Sprintf("Daily Leaderboard %s", result.Date.Format("2006-01-02"))
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
