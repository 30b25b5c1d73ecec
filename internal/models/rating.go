package models

import "time"

// Rating is a teacher's 1-10 score for exactly one homework. The student
// reference is copied from the homework at creation time and never altered,
// so leaderboard aggregation reads ratings without joining homeworks.
type Rating struct {
	ID         string    `db:"id" json:"id"`
	HomeworkID string    `db:"homework_id" json:"homework_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Score      int       `db:"score" json:"score"`
	Comment    string    `db:"comment" json:"comment,omitempty"`
	RatingDate time.Time `db:"rating_date" json:"rating_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	TeacherName string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentName string `db:"student_name" json:"student_name,omitempty"`
	LessonTitle string `db:"lesson_title" json:"lesson_title,omitempty"`
}

// RatingFilter captures filtering criteria for listing ratings.
type RatingFilter struct {
	StudentID *string
	TeacherID *string
	Date      *time.Time
	MinScore  *int
	MaxScore  *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
