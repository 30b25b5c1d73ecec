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

type ratingRepoStub struct {
	byID       map[string]*models.Rating
	byHomework map[string]*models.Rating
	created    []*models.Rating
	deleted    []string
}

func newRatingRepoStub() *ratingRepoStub {
	return &ratingRepoStub{
		byID:       make(map[string]*models.Rating),
		byHomework: make(map[string]*models.Rating),
	}
}

func (r *ratingRepoStub) Create(ctx context.Context, rating *models.Rating) error {
	rating.ID = "rating-1"
	r.created = append(r.created, rating)
	r.byID[rating.ID] = rating
	r.byHomework[rating.HomeworkID] = rating
	return nil
}

func (r *ratingRepoStub) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	rating, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rating, nil
}

func (r *ratingRepoStub) FindByHomework(ctx context.Context, homeworkID string) (*models.Rating, error) {
	rating, ok := r.byHomework[homeworkID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rating, nil
}

func (r *ratingRepoStub) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, int, error) {
	return nil, 0, nil
}

func (r *ratingRepoStub) Update(ctx context.Context, rating *models.Rating) error {
	r.byID[rating.ID] = rating
	return nil
}

func (r *ratingRepoStub) Delete(ctx context.Context, id string) error {
	rating, ok := r.byID[id]
	if ok {
		delete(r.byHomework, rating.HomeworkID)
	}
	r.deleted = append(r.deleted, id)
	delete(r.byID, id)
	return nil
}

type homeworkFinderStub struct {
	homeworks map[string]*models.Homework
}

func (s *homeworkFinderStub) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	hw, ok := s.homeworks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return hw, nil
}

type lessonFinderStub struct {
	lessons map[string]*models.Lesson
}

func (s *lessonFinderStub) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, ok := s.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return lesson, nil
}

func strPtr(s string) *string { return &s }

func ratingFixtures() (*ratingRepoStub, *homeworkFinderStub, *lessonFinderStub, *models.Teacher) {
	repo := newRatingRepoStub()
	homeworks := &homeworkFinderStub{homeworks: map[string]*models.Homework{
		"hw-1": {ID: "hw-1", StudentID: "student-1", LessonID: "lesson-1", Status: models.HomeworkStatusSubmitted},
		"hw-2": {ID: "hw-2", StudentID: "student-2", LessonID: "lesson-1", Status: models.HomeworkStatusRated},
		"hw-3": {ID: "hw-3", StudentID: "student-3", LessonID: "lesson-1", Status: models.HomeworkStatusPending},
	}}
	lessons := &lessonFinderStub{lessons: map[string]*models.Lesson{
		"lesson-1": {ID: "lesson-1", Title: "Algebra", TeacherID: strPtr("teacher-1"), Active: true},
	}}
	teacher := &models.Teacher{ID: "teacher-1", UserID: "user-1"}
	return repo, homeworks, lessons, teacher
}

func TestRatingCreateStampsStudentAndDate(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	rating, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-1", Score: 8, Comment: "solid work"})
	require.NoError(t, err)
	require.Equal(t, "student-1", rating.StudentID)
	require.Equal(t, "teacher-1", rating.TeacherID)
	require.Equal(t, 8, rating.Score)

	now := time.Now().UTC()
	require.Equal(t, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), rating.RatingDate)
}

func TestRatingCreateRejectsAlreadyRated(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-2", Score: 7})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrDuplicateRating.Code, appErr.Code)
}

func TestRatingCreateRejectsPendingHomework(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-3", Score: 7})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRatingCreateRejectsForeignLesson(t *testing.T) {
	repo, homeworks, lessons, _ := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	other := &models.Teacher{ID: "teacher-2", UserID: "user-2"}
	_, err := svc.Create(context.Background(), other, CreateRatingRequest{HomeworkID: "hw-1", Score: 9})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRatingCreateScoreBounds(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-1", Score: 0})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-1", Score: 11})
	require.Error(t, err)
	require.Empty(t, repo.created)
}

func TestRatingUpdateOwnership(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	rating, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-1", Score: 6})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), rating.ID, "teacher-2", UpdateRatingRequest{Score: 9})
	require.Error(t, err)

	updated, err := svc.Update(context.Background(), rating.ID, "teacher-1", UpdateRatingRequest{Score: 9, Comment: "revised"})
	require.NoError(t, err)
	require.Equal(t, 9, updated.Score)

	// Admins pass an empty actor id and bypass the ownership check.
	updated, err = svc.Update(context.Background(), rating.ID, "", UpdateRatingRequest{Score: 10})
	require.NoError(t, err)
	require.Equal(t, 10, updated.Score)
}

func TestRatingDeleteRemovesRating(t *testing.T) {
	repo, homeworks, lessons, teacher := ratingFixtures()
	svc := NewRatingService(repo, homeworks, lessons, nil, zap.NewNop())

	rating, err := svc.Create(context.Background(), teacher, CreateRatingRequest{HomeworkID: "hw-1", Score: 6})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), rating.ID, "teacher-1"))
	require.Contains(t, repo.deleted, rating.ID)

	err = svc.Delete(context.Background(), rating.ID, "teacher-1")
	require.Error(t, err)
}
