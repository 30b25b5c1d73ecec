package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
)

type homeworkRepoStub struct {
	byID           map[string]*models.Homework
	byStudentKey   map[string]*models.Homework
	nextID         int
	attachmentSets map[string]string
}

func newHomeworkRepoStub() *homeworkRepoStub {
	return &homeworkRepoStub{
		byID:           make(map[string]*models.Homework),
		byStudentKey:   make(map[string]*models.Homework),
		attachmentSets: make(map[string]string),
	}
}

func (r *homeworkRepoStub) key(studentID, lessonID string) string {
	return studentID + "|" + lessonID
}

func (r *homeworkRepoStub) Create(ctx context.Context, homework *models.Homework) error {
	r.nextID++
	homework.ID = fmt.Sprintf("hw-%d", r.nextID)
	r.byID[homework.ID] = homework
	r.byStudentKey[r.key(homework.StudentID, homework.LessonID)] = homework
	return nil
}

func (r *homeworkRepoStub) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	hw, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return hw, nil
}

func (r *homeworkRepoStub) FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*models.Homework, error) {
	hw, ok := r.byStudentKey[r.key(studentID, lessonID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return hw, nil
}

func (r *homeworkRepoStub) List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, int, error) {
	return nil, 0, nil
}

func (r *homeworkRepoStub) Update(ctx context.Context, homework *models.Homework) error {
	r.byID[homework.ID] = homework
	return nil
}

func (r *homeworkRepoStub) SetAttachment(ctx context.Context, id, filePath string) error {
	r.attachmentSets[id] = filePath
	return nil
}

func (r *homeworkRepoStub) Delete(ctx context.Context, id string) error {
	hw, ok := r.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(r.byID, id)
	delete(r.byStudentKey, r.key(hw.StudentID, hw.LessonID))
	return nil
}

type attachmentStoreStub struct {
	saved   []string
	deleted []string
}

func (s *attachmentStoreStub) SaveStream(filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.saved = append(s.saved, filename)
	return filename, nil
}

func (s *attachmentStoreStub) Delete(filename string) error {
	s.deleted = append(s.deleted, filename)
	return nil
}

func homeworkFixtures() (*homeworkRepoStub, *lessonFinderStub, *attachmentStoreStub, *models.Student) {
	repo := newHomeworkRepoStub()
	deadline := time.Now().UTC().Add(24 * time.Hour)
	passed := time.Now().UTC().Add(-time.Hour)
	lessons := &lessonFinderStub{lessons: map[string]*models.Lesson{
		"lesson-open": {
			ID: "lesson-open", Title: "Algebra", GroupID: strPtr("group-1"),
			Active: true, Deadline: &deadline, AllowFileUpload: true, AllowURLSubmission: true,
		},
		"lesson-closed": {
			ID: "lesson-closed", Title: "Geometry", GroupID: strPtr("group-1"),
			Active: true, Deadline: &passed, AllowFileUpload: true, AllowURLSubmission: true,
		},
		"lesson-no-url": {
			ID: "lesson-no-url", Title: "Essay", GroupID: strPtr("group-1"),
			Active: true, AllowFileUpload: true, AllowURLSubmission: false,
		},
		"lesson-other-group": {
			ID: "lesson-other-group", Title: "History", GroupID: strPtr("group-2"),
			Active: true, AllowFileUpload: true, AllowURLSubmission: true,
		},
	}}
	store := &attachmentStoreStub{}
	student := &models.Student{ID: "student-1", UserID: "user-1", GroupID: strPtr("group-1")}
	return repo, lessons, store, student
}

func TestHomeworkSubmitCreatesSubmission(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open", Description: "my answers"})
	require.NoError(t, err)
	require.Equal(t, models.HomeworkStatusSubmitted, hw.Status)
	require.Equal(t, "student-1", hw.StudentID)
	require.NotNil(t, hw.SubmittedAt)
}

func TestHomeworkSubmitAfterDeadline(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-closed"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestHomeworkSubmitWrongGroup(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-other-group"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestHomeworkSubmitURLNotAllowed(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{
		LessonID:      "lesson-no-url",
		SubmissionURL: strPtr("https://example.com/answers"),
	})
	require.Error(t, err)
}

func TestHomeworkResubmitReplacesUnratedWork(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	first, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open", Description: "draft"})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open", Description: "final"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "final", second.Description)
	require.Len(t, repo.byID, 1)
}

func TestHomeworkResubmitRejectedOnceRated(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.NoError(t, err)
	hw.Status = models.HomeworkStatusRated

	_, err = svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestHomeworkAttachStoresFile(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.NoError(t, err)

	updated, err := svc.Attach(context.Background(), hw.ID, student.ID, "report.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	require.NotNil(t, updated.SubmissionFile)
	require.True(t, strings.HasSuffix(*updated.SubmissionFile, ".pdf"))
	require.Len(t, store.saved, 1)
}

func TestHomeworkAttachForeignStudent(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.NoError(t, err)

	_, err = svc.Attach(context.Background(), hw.ID, "student-2", "report.pdf", strings.NewReader("pdf bytes"))
	require.Error(t, err)
	require.Empty(t, store.saved)
}

func TestHomeworkDeleteWithdrawsUnratedWork(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), hw.ID, student.ID))
	require.Empty(t, repo.byID)
}

func TestHomeworkDeleteRejectsRatedWorkForStudents(t *testing.T) {
	repo, lessons, store, student := homeworkFixtures()
	svc := NewHomeworkService(repo, lessons, store, nil, zap.NewNop())

	hw, err := svc.Submit(context.Background(), student, SubmitHomeworkRequest{LessonID: "lesson-open"})
	require.NoError(t, err)
	hw.Status = models.HomeworkStatusRated

	err = svc.Delete(context.Background(), hw.ID, student.ID)
	require.Error(t, err)

	// Admins pass an empty actor id and may remove rated work.
	require.NoError(t, svc.Delete(context.Background(), hw.ID, ""))
}
