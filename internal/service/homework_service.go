package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
)

type homeworkRepository interface {
	Create(ctx context.Context, homework *models.Homework) error
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*models.Homework, error)
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, int, error)
	Update(ctx context.Context, homework *models.Homework) error
	SetAttachment(ctx context.Context, id, filePath string) error
	Delete(ctx context.Context, id string) error
}

type homeworkLessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type attachmentStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// SubmitHomeworkRequest holds the payload a student sends for a lesson.
type SubmitHomeworkRequest struct {
	LessonID      string  `json:"lesson_id" validate:"required"`
	SubmissionURL *string `json:"submission_url" validate:"omitempty,url"`
	Description   string  `json:"description"`
}

// HomeworkService handles homework submission use-cases.
type HomeworkService struct {
	repo      homeworkRepository
	lessons   homeworkLessonRepository
	store     attachmentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHomeworkService constructs the homework service.
func NewHomeworkService(repo homeworkRepository, lessons homeworkLessonRepository, store attachmentStore, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{repo: repo, lessons: lessons, store: store, validator: validate, logger: logger}
}

// Submit records a student's homework for a lesson. A student has at most
// one submission per lesson; submitting again before the work is rated
// replaces the previous payload.
func (s *HomeworkService) Submit(ctx context.Context, student *models.Student, req SubmitHomeworkRequest) (*models.Homework, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}

	lesson, err := s.lessons.FindByID(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	if !lesson.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson is not active")
	}
	if lesson.GroupID != nil && (student.GroupID == nil || *student.GroupID != *lesson.GroupID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lesson belongs to another group")
	}
	now := time.Now().UTC()
	if lesson.DeadlinePassed(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson deadline has passed")
	}
	if req.SubmissionURL != nil && !lesson.AllowURLSubmission {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url submissions are not allowed for this lesson")
	}

	existing, err := s.repo.FindByStudentAndLesson(ctx, student.ID, req.LessonID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing submission")
	}

	if existing != nil {
		if existing.Status == models.HomeworkStatusRated {
			return nil, appErrors.Clone(appErrors.ErrConflict, "homework has already been rated")
		}
		existing.SubmissionURL = req.SubmissionURL
		existing.Description = req.Description
		existing.Status = models.HomeworkStatusSubmitted
		existing.SubmittedAt = &now
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
		}
		return existing, nil
	}

	homework := &models.Homework{
		StudentID:     student.ID,
		LessonID:      req.LessonID,
		SubmissionURL: req.SubmissionURL,
		Description:   req.Description,
		Status:        models.HomeworkStatusSubmitted,
		SubmittedAt:   &now,
	}
	if err := s.repo.Create(ctx, homework); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "homework already submitted for this lesson")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	return homework, nil
}

// Get returns a homework. Students may only see their own work; teachers
// only work submitted against their lessons. Admins pass empty actor ids.
func (s *HomeworkService) Get(ctx context.Context, id string, actorStudentID, actorTeacherID string) (*models.Homework, error) {
	homework, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}

	if actorStudentID != "" && homework.StudentID != actorStudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "homework belongs to another student")
	}
	if actorTeacherID != "" {
		lesson, err := s.lessons.FindByID(ctx, homework.LessonID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
		}
		if lesson.TeacherID == nil || *lesson.TeacherID != actorTeacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "homework belongs to another teacher's lesson")
		}
	}
	return homework, nil
}

// List returns homeworks and pagination metadata. Role scoping happens by
// pre-filling the filter's StudentID or TeacherID before the call.
func (s *HomeworkService) List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, *models.Pagination, error) {
	homeworks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homeworks")
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
	return homeworks, pagination, nil
}

// Attach stores an uploaded file for a submission and links it to the
// homework record.
func (s *HomeworkService) Attach(ctx context.Context, homeworkID, actorStudentID, originalName string, r io.Reader) (*models.Homework, error) {
	homework, err := s.repo.FindByID(ctx, homeworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	if homework.StudentID != actorStudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "homework belongs to another student")
	}
	if homework.Status == models.HomeworkStatusRated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "homework has already been rated")
	}

	lesson, err := s.lessons.FindByID(ctx, homework.LessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if !lesson.AllowFileUpload {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file uploads are not allowed for this lesson")
	}

	storedName := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(originalName))
	path, err := s.store.SaveStream(storedName, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	if homework.SubmissionFile != nil {
		if err := s.store.Delete(filepath.Base(*homework.SubmissionFile)); err != nil {
			s.logger.Warn("failed to remove replaced attachment", zap.String("homework_id", homework.ID), zap.Error(err))
		}
	}

	if err := s.repo.SetAttachment(ctx, homework.ID, path); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link attachment")
	}
	homework.SubmissionFile = &path
	return homework, nil
}

// Delete removes a submission. Students may withdraw their own unrated
// work; admins pass an empty actor id and can delete anything.
func (s *HomeworkService) Delete(ctx context.Context, id, actorStudentID string) error {
	homework, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	if actorStudentID != "" {
		if homework.StudentID != actorStudentID {
			return appErrors.Clone(appErrors.ErrForbidden, "homework belongs to another student")
		}
		if homework.Status == models.HomeworkStatusRated {
			return appErrors.Clone(appErrors.ErrConflict, "rated homework cannot be withdrawn")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete homework")
	}

	if homework.SubmissionFile != nil {
		if err := s.store.Delete(filepath.Base(*homework.SubmissionFile)); err != nil {
			s.logger.Warn("failed to remove stored attachment", zap.String("homework_id", homework.ID), zap.Error(err))
		}
	}
	return nil
}
