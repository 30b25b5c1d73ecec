package models

import "time"

// LeaderboardEntry is one student's rank for one calendar date. Entries for a
// date are fully replaced on every recalculation; the average is stored
// untruncated so the day's score total can be reconstructed from it.
type LeaderboardEntry struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Date         time.Time `db:"date" json:"date"`
	AverageScore float64   `db:"average_score" json:"average_score"`
	Rank         int       `db:"rank" json:"rank"`
	TotalRatings int       `db:"total_ratings" json:"total_ratings"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	// Joined display fields. GroupName is nil for groupless students.
	StudentCode string  `db:"student_code" json:"student_code,omitempty"`
	StudentName string  `db:"student_name" json:"student_name,omitempty"`
	GroupName   *string `db:"group_name" json:"group_name,omitempty"`
}

// IsTopThree reports whether the entry sits in the podium positions.
func (e *LeaderboardEntry) IsTopThree() bool {
	return e.Rank <= 3
}

// LeaderboardRun records that recalculation ran for a date. Its presence is
// what distinguishes "calculated with zero participants" from "never
// calculated".
type LeaderboardRun struct {
	Date         time.Time `db:"date" json:"date"`
	CalculatedAt time.Time `db:"calculated_at" json:"calculated_at"`
	EntryCount   int       `db:"entry_count" json:"entry_count"`
}

// MonthlyLeaderboardEntry is a compute-on-read ranking over a month's ratings.
// It is never persisted.
type MonthlyLeaderboardEntry struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	StudentCode  string  `db:"student_code" json:"student_code"`
	StudentName  string  `db:"student_name" json:"student_name"`
	AverageScore float64 `db:"average_score" json:"average_score"`
	TotalRatings int     `db:"total_ratings" json:"total_ratings"`
	Rank         int     `json:"rank"`
}

// StudentDayScore is the aggregation source row for the daily recalculation:
// one student's accumulated scores for a date, with the timestamp of the
// student's first rating that day used as the deterministic tie-break key.
type StudentDayScore struct {
	StudentID    string    `db:"student_id"`
	ScoreSum     int       `db:"score_sum"`
	RatingCount  int       `db:"rating_count"`
	FirstRatedAt time.Time `db:"first_rated_at"`
}
