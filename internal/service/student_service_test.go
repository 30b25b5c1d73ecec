package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupulse/learning-center-api/internal/models"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
)

type userRepoStub struct {
	byID map[string]*models.User

	createErr error
	deleted   []string
	nextID    int
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{byID: make(map[string]*models.User)}
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byID[user.ID] = user
	return nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (r *userRepoStub) Update(ctx context.Context, user *models.User) error {
	r.byID[user.ID] = user
	return nil
}

func (r *userRepoStub) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	delete(r.byID, id)
	return nil
}

type studentRepoStub struct {
	byID     map[string]*models.Student
	byUserID map[string]*models.Student

	createErr error
	nextID    int
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{
		byID:     make(map[string]*models.Student),
		byUserID: make(map[string]*models.Student),
	}
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	student.ID = fmt.Sprintf("student-%d", r.nextID)
	r.byID[student.ID] = student
	r.byUserID[student.UserID] = student
	return nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *studentRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	s, ok := r.byUserID[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (r *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	r.byID[student.ID] = student
	return nil
}

func (r *studentRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func TestStudentCreateLinksAccountWithStudentRole(t *testing.T) {
	users := newUserRepoStub()
	students := newStudentRepoStub()
	svc := NewStudentService(students, users, nil, zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Email:       "alice@example.com",
		Password:    "secret123",
		FullName:    "Alice",
		StudentCode: "ST-001",
	})
	require.NoError(t, err)
	require.NotEmpty(t, student.ID)

	account := users.byID[student.UserID]
	require.NotNil(t, account)
	require.Equal(t, models.RoleStudent, account.Role)
	require.True(t, account.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("secret123")))
}

func TestStudentCreateDuplicateEmail(t *testing.T) {
	users := newUserRepoStub()
	users.createErr = &pq.Error{Code: "23505"}
	students := newStudentRepoStub()
	svc := NewStudentService(students, users, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Email:       "alice@example.com",
		Password:    "secret123",
		FullName:    "Alice",
		StudentCode: "ST-001",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentCreateRollsBackOrphanAccount(t *testing.T) {
	users := newUserRepoStub()
	students := newStudentRepoStub()
	students.createErr = &pq.Error{Code: "23505"}
	svc := NewStudentService(students, users, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Email:       "alice@example.com",
		Password:    "secret123",
		FullName:    "Alice",
		StudentCode: "ST-001",
	})
	require.Error(t, err)
	require.Len(t, users.deleted, 1)
	require.Empty(t, users.byID)
}

func TestStudentDeleteRemovesAccount(t *testing.T) {
	users := newUserRepoStub()
	students := newStudentRepoStub()
	svc := NewStudentService(students, users, nil, zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Email:       "alice@example.com",
		Password:    "secret123",
		FullName:    "Alice",
		StudentCode: "ST-001",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), student.ID))
	require.Contains(t, users.deleted, student.UserID)
}
