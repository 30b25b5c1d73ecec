package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/learning-center-api/internal/models"
)

func newRatingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRatingRepositoryCreateMarksHomeworkRated(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rating := &models.Rating{
		HomeworkID: "hw-1",
		TeacherID:  "teacher-1",
		StudentID:  "student-1",
		Score:      8,
		Comment:    "good",
		RatingDate: day,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ratings")).
		WithArgs(sqlmock.AnyArg(), "hw-1", "teacher-1", "student-1", 8, "good", day, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE homeworks SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("hw-1", models.HomeworkStatusRated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), rating))
	require.NotEmpty(t, rating.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryCreateUniqueViolationRollsBack(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	rating := &models.Rating{
		HomeworkID: "hw-1",
		TeacherID:  "teacher-1",
		StudentID:  "student-1",
		Score:      8,
		RatingDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ratings")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), rating)
	require.Error(t, err)

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	require.Equal(t, pq.ErrorCode("23505"), pqErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryDeleteLeavesHomeworkStatus(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	// A single DELETE and nothing else: the homework keeps its RATED
	// status because submissions never move backwards.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ratings WHERE id = $1")).
		WithArgs("rating-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "rating-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryUpdateTouchesScoreAndCommentOnly(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	rating := &models.Rating{ID: "rating-1", Score: 9, Comment: "revised"}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ratings SET score = ?, comment = ?, updated_at = ? WHERE id = ?")).
		WithArgs(9, "revised", sqlmock.AnyArg(), "rating-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), rating))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "homework_id", "teacher_id", "student_id", "score", "comment", "rating_date", "created_at", "updated_at", "teacher_name", "student_name", "lesson_title"}).
		AddRow("rating-1", "hw-1", "teacher-1", "student-1", 8, "good", day, time.Now(), time.Now(), "Mr. Smith", "Alice", "Algebra")
	mock.ExpectQuery(regexp.QuoteMeta("r.student_id = $1")).
		WithArgs("student-1", day).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-1", day).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	studentID := "student-1"
	ratings, total, err := repo.List(context.Background(), models.RatingFilter{StudentID: &studentID, Date: &day})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, ratings, 1)
	require.Equal(t, "Algebra", ratings[0].LessonTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}
