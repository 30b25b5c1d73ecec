package models

import "time"

// Teacher is the one-to-one profile extension of a TEACHER user.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	EmployeeCode   string    `db:"employee_code" json:"employee_code"`
	Phone          string    `db:"phone" json:"phone,omitempty"`
	Specialization string    `db:"specialization" json:"specialization,omitempty"`
	Bio            string    `db:"bio" json:"bio,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	Email    string `db:"email" json:"email,omitempty"`
	FullName string `db:"full_name" json:"full_name,omitempty"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Active         *bool
	Specialization string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
