package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
)

type ratingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	FindByID(ctx context.Context, id string) (*models.Rating, error)
	FindByHomework(ctx context.Context, homeworkID string) (*models.Rating, error)
	List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, int, error)
	Update(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, id string) error
}

type ratingHomeworkRepository interface {
	FindByID(ctx context.Context, id string) (*models.Homework, error)
}

// CreateRatingRequest holds the payload a teacher sends to score a
// submission.
type CreateRatingRequest struct {
	HomeworkID string `json:"homework_id" validate:"required"`
	Score      int    `json:"score" validate:"required,min=1,max=10"`
	Comment    string `json:"comment"`
}

// UpdateRatingRequest holds payload for revising an existing score.
type UpdateRatingRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=10"`
	Comment string `json:"comment"`
}

// RatingService handles homework scoring use-cases.
type RatingService struct {
	repo      ratingRepository
	homeworks ratingHomeworkRepository
	lessons   homeworkLessonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRatingService constructs the rating service.
func NewRatingService(repo ratingRepository, homeworks ratingHomeworkRepository, lessons homeworkLessonRepository, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{repo: repo, homeworks: homeworks, lessons: lessons, validator: validate, logger: logger}
}

// Create scores a submitted homework. A homework carries at most one
// rating; a second attempt is rejected rather than merged. The student id
// is stamped from the homework at creation time and never changes
// afterwards, so leaderboard aggregation reads ratings alone and never
// joins back through homeworks.
func (s *RatingService) Create(ctx context.Context, teacher *models.Teacher, req CreateRatingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}

	homework, err := s.homeworks.FindByID(ctx, req.HomeworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}

	if homework.Status != models.HomeworkStatusSubmitted {
		if homework.Status == models.HomeworkStatusRated {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRating, "homework has already been rated")
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "homework has no submission to rate")
	}

	lesson, err := s.lessons.FindByID(ctx, homework.LessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if lesson.TeacherID == nil || *lesson.TeacherID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}

	if _, err := s.repo.FindByHomework(ctx, req.HomeworkID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRating, "homework has already been rated")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing rating")
	}

	now := time.Now().UTC()
	rating := &models.Rating{
		HomeworkID: homework.ID,
		TeacherID:  teacher.ID,
		StudentID:  homework.StudentID,
		Score:      req.Score,
		Comment:    req.Comment,
		RatingDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
	if err := s.repo.Create(ctx, rating); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRating, "homework has already been rated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rating")
	}
	return rating, nil
}

// Get returns a rating by id.
func (s *RatingService) Get(ctx context.Context, id string) (*models.Rating, error) {
	rating, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	return rating, nil
}

// List returns ratings and pagination metadata.
func (s *RatingService) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, *models.Pagination, error) {
	ratings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return ratings, pagination, nil
}

// Update revises the score or comment of a rating. Only the teacher who
// issued it may change it; admins pass an empty actor id.
func (s *RatingService) Update(ctx context.Context, id, actorTeacherID string, req UpdateRatingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}

	rating, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	if actorTeacherID != "" && rating.TeacherID != actorTeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "rating was issued by another teacher")
	}

	rating.Score = req.Score
	rating.Comment = req.Comment
	if err := s.repo.Update(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rating")
	}
	return rating, nil
}

// Delete removes a rating. The homework keeps its RATED status; the
// lifecycle never moves a submission back to an earlier state.
func (s *RatingService) Delete(ctx context.Context, id, actorTeacherID string) error {
	rating, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	if actorTeacherID != "" && rating.TeacherID != actorTeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "rating was issued by another teacher")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rating")
	}
	return nil
}
