package models

import "time"

// HomeworkStatus tracks the submission lifecycle.
type HomeworkStatus string

const (
	// HomeworkStatusPending is the schema default. The normal flow never
	// produces it: creating a homework stamps SUBMITTED immediately.
	HomeworkStatusPending   HomeworkStatus = "PENDING"
	HomeworkStatusSubmitted HomeworkStatus = "SUBMITTED"
	HomeworkStatusRated     HomeworkStatus = "RATED"
)

// Homework is a student's submission for a lesson. One per (student, lesson).
type Homework struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	LessonID       string         `db:"lesson_id" json:"lesson_id"`
	SubmissionURL  *string        `db:"submission_url" json:"submission_url,omitempty"`
	SubmissionFile *string        `db:"submission_file" json:"submission_file,omitempty"`
	Description    string         `db:"description" json:"description,omitempty"`
	Status         HomeworkStatus `db:"status" json:"status"`
	SubmittedAt    *time.Time     `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	StudentCode string `db:"student_code" json:"student_code,omitempty"`
	StudentName string `db:"student_name" json:"student_name,omitempty"`
	LessonTitle string `db:"lesson_title" json:"lesson_title,omitempty"`
}

// HasSubmission reports whether the homework carries a URL or a stored file.
func (h *Homework) HasSubmission() bool {
	return (h.SubmissionURL != nil && *h.SubmissionURL != "") ||
		(h.SubmissionFile != nil && *h.SubmissionFile != "")
}

// HomeworkFilter captures filtering criteria for listing homework.
type HomeworkFilter struct {
	StudentID *string
	LessonID  *string
	TeacherID *string
	Status    *HomeworkStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
