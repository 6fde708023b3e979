package models

import (
	"strings"
	"time"
)

// Grades lists every school grade accepted at registration.
var Grades = []string{
	"1° Prim", "2° Prim", "3° Prim", "4° Prim", "5° Prim", "6° Prim",
	"1° Sec", "2° Sec", "3° Sec", "4° Sec", "5° Sec",
}

// IsValidGrade reports whether grade is one of Grades.
func IsValidGrade(grade string) bool {
	for _, g := range Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// Student represents a learner being enrolled.
type Student struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Age        int       `db:"age" json:"age"`
	Grade      string    `db:"grade" json:"grade"`
	School     string    `db:"school" json:"school"`
	GuardianID *string   `db:"guardian_id" json:"guardian_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
