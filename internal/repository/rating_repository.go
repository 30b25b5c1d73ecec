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

// RatingRepository provides database access for homework ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new instance of RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

const ratingSelectColumns = `
    r.id, r.homework_id, r.teacher_id, r.student_id, r.score, r.comment, r.rating_date,
    r.created_at, r.updated_at,
    tu.full_name AS teacher_name,
    su.full_name AS student_name,
    l.title AS lesson_title`

const ratingBaseQuery = `
    FROM ratings r
    JOIN teachers t ON t.id = r.teacher_id
    JOIN users tu ON tu.id = t.user_id
    JOIN students s ON s.id = r.student_id
    JOIN users su ON su.id = s.user_id
    JOIN homeworks h ON h.id = r.homework_id
    JOIN lessons l ON l.id = h.lesson_id`

// Create inserts a rating and flips the homework to RATED in one
// transaction, so a rating can never exist against an unrated homework row.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rating transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertQuery = `INSERT INTO ratings (id, homework_id, teacher_id, student_id, score, comment, rating_date, created_at, updated_at)
        VALUES (:id, :homework_id, :teacher_id, :student_id, :score, :comment, :rating_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, rating); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}

	const statusQuery = `UPDATE homeworks SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, statusQuery, rating.HomeworkID, models.HomeworkStatusRated, now); err != nil {
		return fmt.Errorf("mark homework rated: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rating transaction: %w", err)
	}
	return nil
}

// FindByID returns a rating with teacher, student and lesson names joined in.
func (r *RatingRepository) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1 LIMIT 1", ratingSelectColumns, ratingBaseQuery)
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rating by id: %w", err)
	}
	return &rating, nil
}

// FindByHomework returns the rating attached to a homework, or
// sql.ErrNoRows when the homework has not been scored.
func (r *RatingRepository) FindByHomework(ctx context.Context, homeworkID string) (*models.Rating, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.homework_id = $1 LIMIT 1", ratingSelectColumns, ratingBaseQuery)
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, homeworkID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rating by homework: %w", err)
	}
	return &rating, nil
}

// List returns ratings based on filters with total count.
func (r *RatingRepository) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, int, error) {
	baseQuery := ratingBaseQuery + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, *filter.StudentID)
	}
	if filter.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("r.teacher_id = $%d", len(args)+1))
		args = append(args, *filter.TeacherID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("r.rating_date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.MinScore != nil {
		conditions = append(conditions, fmt.Sprintf("r.score >= $%d", len(args)+1))
		args = append(args, *filter.MinScore)
	}
	if filter.MaxScore != nil {
		conditions = append(conditions, fmt.Sprintf("r.score <= $%d", len(args)+1))
		args = append(args, *filter.MaxScore)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"score":       "r.score",
		"rating_date": "r.rating_date",
		"created_at":  "r.created_at",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "r.created_at"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", ratingSelectColumns, baseQuery, sortColumn, sortOrder, pageSize, offset)

	var ratings []models.Rating
	if err := r.db.SelectContext(ctx, &ratings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	return ratings, total, nil
}

// Update modifies the score and comment of an existing rating. The
// student_id column stays untouched so the denormalized link never drifts.
func (r *RatingRepository) Update(ctx context.Context, rating *models.Rating) error {
	rating.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ratings SET score = :score, comment = :comment, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// Delete removes a rating. The homework keeps its RATED status; status
// transitions never run backwards.
func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM ratings WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}
