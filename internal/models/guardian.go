package models

import (
	"strings"
	"time"
)

// Guardian is the adult responsible for one or more students. The DNI is unique
// and a guardian is reused whenever the same DNI registers again.
type Guardian struct {
	ID        string    `db:"id" json:"id"`
	DNI       string    `db:"dni" json:"dni"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (g Guardian) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}
