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

type lessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	ListSubmissions(ctx context.Context, lessonID string) ([]models.LessonSubmissionRow, error)
}

// CreateLessonRequest holds payload for creating a lesson. TeacherID is
// filled from the caller's profile for teachers and from the body for
// admins.
type CreateLessonRequest struct {
	Title              string     `json:"title" validate:"required"`
	Description        string     `json:"description"`
	TeacherID          *string    `json:"teacher_id"`
	GroupID            *string    `json:"group_id"`
	StartDate          time.Time  `json:"start_date" validate:"required"`
	Deadline           *time.Time `json:"deadline"`
	HomeworkTask       string     `json:"homework_task"`
	AllowFileUpload    bool       `json:"allow_file_upload"`
	AllowURLSubmission bool       `json:"allow_url_submission"`
}

// UpdateLessonRequest holds payload for updating a lesson.
type UpdateLessonRequest struct {
	Title              string     `json:"title" validate:"required"`
	Description        string     `json:"description"`
	GroupID            *string    `json:"group_id"`
	StartDate          time.Time  `json:"start_date" validate:"required"`
	Deadline           *time.Time `json:"deadline"`
	Active             bool       `json:"active"`
	HomeworkTask       string     `json:"homework_task"`
	AllowFileUpload    bool       `json:"allow_file_upload"`
	AllowURLSubmission bool       `json:"allow_url_submission"`
}

// LessonService handles lesson use-cases.
type LessonService struct {
	repo      lessonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo lessonRepository, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, validator: validate, logger: logger}
}

// List returns lessons and pagination metadata.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, *models.Pagination, error) {
	lessons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
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
	return lessons, pagination, nil
}

// Get returns a lesson by id.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create registers a new lesson.
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if req.Deadline != nil && req.Deadline.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline cannot precede start date")
	}

	lesson := &models.Lesson{
		Title:              req.Title,
		Description:        req.Description,
		TeacherID:          req.TeacherID,
		GroupID:            req.GroupID,
		StartDate:          req.StartDate,
		Deadline:           req.Deadline,
		Active:             true,
		HomeworkTask:       req.HomeworkTask,
		AllowFileUpload:    req.AllowFileUpload,
		AllowURLSubmission: req.AllowURLSubmission,
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// Update modifies an existing lesson. Teachers may only touch their own
// lessons; the handler passes actorTeacherID empty for admins.
func (s *LessonService) Update(ctx context.Context, id string, actorTeacherID string, req UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	if req.Deadline != nil && req.Deadline.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline cannot precede start date")
	}

	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if actorTeacherID != "" && (lesson.TeacherID == nil || *lesson.TeacherID != actorTeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}

	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.GroupID = req.GroupID
	lesson.StartDate = req.StartDate
	lesson.Deadline = req.Deadline
	lesson.Active = req.Active
	lesson.HomeworkTask = req.HomeworkTask
	lesson.AllowFileUpload = req.AllowFileUpload
	lesson.AllowURLSubmission = req.AllowURLSubmission
	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// Delete removes a lesson.
func (s *LessonService) Delete(ctx context.Context, id string, actorTeacherID string) error {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if actorTeacherID != "" && (lesson.TeacherID == nil || *lesson.TeacherID != actorTeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

// Submissions returns the per-student submission state of a lesson with
// summary counters.
func (s *LessonService) Submissions(ctx context.Context, lessonID string, actorTeacherID string) (*models.LessonSubmissionSummary, error) {
	lesson, err := s.repo.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if actorTeacherID != "" && (lesson.TeacherID == nil || *lesson.TeacherID != actorTeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another teacher")
	}

	rows, err := s.repo.ListSubmissions(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	summary := &models.LessonSubmissionSummary{
		LessonID:    lesson.ID,
		LessonTitle: lesson.Title,
		Students:    rows,
	}
	for _, row := range rows {
		summary.TotalStudents++
		if row.HomeworkID != nil {
			summary.SubmittedCount++
		}
	}
	summary.NotSubmittedCount = summary.TotalStudents - summary.SubmittedCount
	return summary, nil
}
