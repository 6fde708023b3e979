package dto

import "github.com/noah-isme/ceama-enrollment-api/internal/models"

// StageRegistrationRequest is step one of the public registration flow.
type StageRegistrationRequest struct {
	FirstName    string  `json:"first_name" validate:"required,max=30"`
	LastName     string  `json:"last_name" validate:"required,max=30"`
	Age          int     `json:"age" validate:"required,min=5,max=20"`
	Grade        string  `json:"grade" validate:"required"`
	School       string  `json:"school" validate:"omitempty,max=30"`
	PlanID       *string `json:"plan_id" validate:"omitempty,uuid"`
	AssignmentID *string `json:"assignment_id" validate:"omitempty,uuid"`
}

// StageGuardianRequest is step two of the public registration flow.
type StageGuardianRequest struct {
	DNI       string  `json:"dni" validate:"required,len=8,numeric"`
	FirstName string  `json:"first_name" validate:"required,max=30"`
	LastName  string  `json:"last_name" validate:"required,max=30"`
	Phone     string  `json:"phone" validate:"required,len=9,numeric"`
	Email     *string `json:"email" validate:"omitempty,email,max=50"`
	Address   string  `json:"address" validate:"omitempty,max=50"`
}

// RegistrationPreview is what the guardian reviews before paying.
type RegistrationPreview struct {
	Enrollment models.StagedEnrollment `json:"enrollment"`
	Guardian   *models.StagedGuardian  `json:"guardian,omitempty"`
	Plan       *models.Plan            `json:"plan,omitempty"`
	Assignment *AssignmentSummary      `json:"assignment,omitempty"`
	ExpiresAt  string                  `json:"expires_at"`
}
