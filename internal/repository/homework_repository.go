package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/learning-center-api/internal/models"
)

// HomeworkRepository provides database access for homework submissions.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository creates a new instance of HomeworkRepository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

const homeworkSelectColumns = `
    h.id, h.student_id, h.lesson_id, h.submission_url, h.submission_file, h.description,
    h.status, h.submitted_at, h.created_at, h.updated_at,
    s.student_code AS student_code,
    u.full_name AS student_name,
    l.title AS lesson_title`

const homeworkBaseQuery = `
    FROM homeworks h
    JOIN students s ON s.id = h.student_id
    JOIN users u ON u.id = s.user_id
    JOIN lessons l ON l.id = h.lesson_id`

// Create inserts a new homework submission.
func (r *HomeworkRepository) Create(ctx context.Context, homework *models.Homework) error {
	if homework.ID == "" {
		homework.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if homework.CreatedAt.IsZero() {
		homework.CreatedAt = now
	}
	homework.UpdatedAt = now

	const query = `INSERT INTO homeworks (id, student_id, lesson_id, submission_url, submission_file, description, status, submitted_at, created_at, updated_at)
        VALUES (:id, :student_id, :lesson_id, :submission_url, :submission_file, :description, :status, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, homework); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// FindByID returns a homework with student and lesson details joined in.
func (r *HomeworkRepository) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE h.id = $1 LIMIT 1", homeworkSelectColumns, homeworkBaseQuery)
	var homework models.Homework
	if err := r.db.GetContext(ctx, &homework, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find homework by id: %w", err)
	}
	return &homework, nil
}

// FindByStudentAndLesson returns the single submission a student may have
// for a lesson, or sql.ErrNoRows when none exists.
func (r *HomeworkRepository) FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*models.Homework, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE h.student_id = $1 AND h.lesson_id = $2 LIMIT 1", homeworkSelectColumns, homeworkBaseQuery)
	var homework models.Homework
	if err := r.db.GetContext(ctx, &homework, query, studentID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find homework by student and lesson: %w", err)
	}
	return &homework, nil
}

// List returns homeworks based on filters with total count.
func (r *HomeworkRepository) List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, int, error) {
	baseQuery := homeworkBaseQuery + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("h.student_id = $%d", len(args)+1))
		args = append(args, *filter.StudentID)
	}
	if filter.LessonID != nil {
		conditions = append(conditions, fmt.Sprintf("h.lesson_id = $%d", len(args)+1))
		args = append(args, *filter.LessonID)
	}
	if filter.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("l.teacher_id = $%d", len(args)+1))
		args = append(args, *filter.TeacherID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("h.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"submitted_at": "h.submitted_at",
		"created_at":   "h.created_at",
		"status":       "h.status",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "h.created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", homeworkSelectColumns, baseQuery, sortColumn, sortOrder, pageSize, offset)

	var homeworks []models.Homework
	if err := r.db.SelectContext(ctx, &homeworks, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list homeworks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count homeworks: %w", err)
	}

	return homeworks, total, nil
}

// Update modifies the submission payload of a homework.
func (r *HomeworkRepository) Update(ctx context.Context, homework *models.Homework) error {
	homework.UpdatedAt = time.Now().UTC()
	const query = `UPDATE homeworks SET submission_url = :submission_url, submission_file = :submission_file, description = :description, status = :status, submitted_at = :submitted_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, homework); err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return nil
}

// SetAttachment records the stored file path for a submission.
func (r *HomeworkRepository) SetAttachment(ctx context.Context, id, filePath string) error {
	const query = `UPDATE homeworks SET submission_file = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("set homework attachment: %w", err)
	}
	return nil
}

// Delete removes a homework submission.
func (r *HomeworkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM homeworks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return nil
}
