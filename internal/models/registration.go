package models

import "time"

// RegistrationStatus mirrors whether the enrollment has an approved payment.
type RegistrationStatus string

// Registration statuses.
const (
	RegistrationStatusActive   RegistrationStatus = "ACTIVE"
	RegistrationStatusInactive RegistrationStatus = "INACTIVE"
)

// Registration is the administrative record linking an enrollment to the
// class-group seats it holds.
type Registration struct {
	ID              string             `db:"id" json:"id"`
	EnrollmentID    string             `db:"enrollment_id" json:"enrollment_id"`
	StudentID       string             `db:"student_id" json:"student_id"`
	Status          RegistrationStatus `db:"status" json:"status"`
	ReferenceAmount float64            `db:"reference_amount" json:"reference_amount"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}
