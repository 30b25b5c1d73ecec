package models

import "time"

// Lesson is a unit of teaching owned by a teacher, optionally scoped to a group.
type Lesson struct {
	ID                 string     `db:"id" json:"id"`
	Title              string     `db:"title" json:"title"`
	Description        string     `db:"description" json:"description,omitempty"`
	TeacherID          *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	GroupID            *string    `db:"group_id" json:"group_id,omitempty"`
	StartDate          time.Time  `db:"start_date" json:"start_date"`
	EndDate            *time.Time `db:"end_date" json:"end_date,omitempty"`
	Deadline           *time.Time `db:"deadline" json:"deadline,omitempty"`
	Active             bool       `db:"active" json:"active"`
	HomeworkTask       string     `db:"homework_task" json:"homework_task,omitempty"`
	AllowFileUpload    bool       `db:"allow_file_upload" json:"allow_file_upload"`
	AllowURLSubmission bool       `db:"allow_url_submission" json:"allow_url_submission"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`

	// Joined display fields, nil when the lesson has no teacher or group.
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	GroupName   *string `db:"group_name" json:"group_name,omitempty"`
}

// DeadlinePassed reports whether the homework deadline is in the past.
func (l *Lesson) DeadlinePassed(now time.Time) bool {
	return l.Deadline != nil && now.After(*l.Deadline)
}

// LessonFilter captures filtering criteria for listing lessons.
type LessonFilter struct {
	TeacherID *string
	GroupID   *string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LessonSubmissionRow summarises one student's standing for a lesson.
type LessonSubmissionRow struct {
	StudentID   string     `db:"student_id" json:"student_id"`
	StudentCode string     `db:"student_code" json:"student_code"`
	StudentName string     `db:"student_name" json:"student_name"`
	HomeworkID  *string    `db:"homework_id" json:"homework_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	Score       *int       `db:"score" json:"score,omitempty"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
}

// LessonSubmissionSummary reports submission progress for a lesson's group.
type LessonSubmissionSummary struct {
	LessonID          string                `json:"lesson_id"`
	LessonTitle       string                `json:"lesson_title"`
	TotalStudents     int                   `json:"total_students"`
	SubmittedCount    int                   `json:"submitted_count"`
	NotSubmittedCount int                   `json:"not_submitted_count"`
	Students          []LessonSubmissionRow `json:"students"`
}
