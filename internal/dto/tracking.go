package dto

import "github.com/noah-isme/ceama-enrollment-api/internal/models"

// TrackingView is what a guardian sees for an access code.
type TrackingView struct {
	AccessCode    string                         `json:"access_code"`
	EnrollmentID  string                         `json:"enrollment_id"`
	StudentName   string                         `json:"student_name"`
	Grade         string                         `json:"grade"`
	PlanName      string                         `json:"plan_name"`
	Status        models.EnrollmentStatus        `json:"status"`
	PaymentStatus models.EnrollmentPaymentStatus `json:"payment_status"`
	Payments      []models.Payment               `json:"payments"`
	HasPending    bool                           `json:"has_pending"`
	CanSubmit     bool                           `json:"can_submit"`
}

// ResendCodeRequest asks for the access code to be emailed again.
type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}
