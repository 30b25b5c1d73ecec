package models

import "time"

// Student is the one-to-one profile extension of a STUDENT user.
type Student struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	StudentCode string     `db:"student_code" json:"student_code"`
	GroupID     *string    `db:"group_id" json:"group_id,omitempty"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address     string     `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// Joined display fields, populated by list/detail queries. GroupName
	// is nil while the student is unassigned.
	Email     string  `db:"email" json:"email,omitempty"`
	FullName  string  `db:"full_name" json:"full_name,omitempty"`
	GroupName *string `db:"group_name" json:"group_name,omitempty"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	GroupID   *string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
