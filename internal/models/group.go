package models

import "time"

// Group is a named roster of students, optionally led by a teacher.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields. TeacherName is nil for leaderless groups.
	TeacherName  *string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentCount int     `db:"student_count" json:"student_count"`
}

// GroupFilter captures filtering criteria for listing groups.
type GroupFilter struct {
	Active    *bool
	TeacherID *string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
