package models

import "time"

// Student is the risk-flag view of a learner. The full student aggregate is
// owned elsewhere; this engine reads identity fields and maintains
// HasWarning as a cache over "at least one open warning exists".
type Student struct {
	ID            string    `db:"id" json:"id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	HasWarning    bool      `db:"has_warning" json:"has_warning"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
