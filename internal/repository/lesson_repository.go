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

// LessonRepository provides database access for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new instance of LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonSelectColumns = `
    l.id, l.title, l.description, l.teacher_id, l.group_id, l.start_date, l.deadline,
    l.active, l.homework_task, l.allow_file_upload, l.allow_url_submission,
    l.created_at, l.updated_at,
    tu.full_name AS teacher_name,
    g.name AS group_name`

const lessonBaseQuery = `
    FROM lessons l
    LEFT JOIN teachers t ON t.id = l.teacher_id
    LEFT JOIN users tu ON tu.id = t.user_id
    LEFT JOIN groups g ON g.id = l.group_id`

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, title, description, teacher_id, group_id, start_date, deadline, active, homework_task, allow_file_upload, allow_url_submission, created_at, updated_at)
        VALUES (:id, :title, :description, :teacher_id, :group_id, :start_date, :deadline, :active, :homework_task, :allow_file_upload, :allow_url_submission, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// FindByID returns a lesson with teacher and group names joined in.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE l.id = $1 LIMIT 1", lessonSelectColumns, lessonBaseQuery)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson by id: %w", err)
	}
	return &lesson, nil
}

// List returns lessons based on filters with total count.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	baseQuery := lessonBaseQuery + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("l.teacher_id = $%d", len(args)+1))
		args = append(args, *filter.TeacherID)
	}
	if filter.GroupID != nil {
		conditions = append(conditions, fmt.Sprintf("l.group_id = $%d", len(args)+1))
		args = append(args, *filter.GroupID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("l.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(l.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "l.title",
		"start_date": "l.start_date",
		"deadline":   "l.deadline",
		"created_at": "l.created_at",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "l.start_date"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", lessonSelectColumns, baseQuery, sortColumn, sortOrder, pageSize, offset)

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	return lessons, total, nil
}

// Update modifies a lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, description = :description, group_id = :group_id, start_date = :start_date, deadline = :deadline, active = :active, homework_task = :homework_task, allow_file_upload = :allow_file_upload, allow_url_submission = :allow_url_submission, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// ListSubmissions returns the per-student submission state for a lesson.
// Every student in the lesson's group appears once, with NULL homework
// columns for students who have not submitted yet.
func (r *LessonRepository) ListSubmissions(ctx context.Context, lessonID string) ([]models.LessonSubmissionRow, error) {
	const query = `
        SELECT
            s.id AS student_id,
            s.student_code,
            u.full_name AS student_name,
            h.id AS homework_id,
            COALESCE(h.status, 'PENDING') AS status,
            h.submitted_at,
            rt.score
        FROM lessons l
        JOIN students s ON s.group_id = l.group_id
        JOIN users u ON u.id = s.user_id
        LEFT JOIN homeworks h ON h.lesson_id = l.id AND h.student_id = s.id
        LEFT JOIN ratings rt ON rt.homework_id = h.id
        WHERE l.id = $1
        ORDER BY u.full_name ASC`
	var rows []models.LessonSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, lessonID); err != nil {
		return nil, fmt.Errorf("list lesson submissions: %w", err)
	}
	return rows, nil
}
