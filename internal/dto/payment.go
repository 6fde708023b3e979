package dto

import (
	"time"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

// SubmitPaymentForm captures the multipart fields of a payment submission.
type SubmitPaymentForm struct {
	EnrollmentID    string  `form:"inscripcion_id" validate:"omitempty,uuid"`
	Amount          float64 `form:"amount" validate:"required,gt=0"`
	Method          string  `form:"method" validate:"required,oneof=TRANSFER YAPE PLIN"`
	RequestedStatus string  `form:"requested_status" validate:"omitempty,oneof=PARTIAL COMPLETED"`
}

// RegularizePaymentForm captures a follow-up payment submitted from tracking.
type RegularizePaymentForm struct {
	Amount float64 `form:"amount" validate:"required,gte=1"`
	Method string  `form:"method" validate:"required,oneof=TRANSFER YAPE PLIN"`
}

// PaymentSubmission is returned after a payment has been recorded.
type PaymentSubmission struct {
	Payment      models.Payment        `json:"payment"`
	Proofs       []models.PaymentProof `json:"proofs"`
	EnrollmentID string                `json:"enrollment_id"`
	Message      string                `json:"message"`
}

// ApprovePaymentRequest optionally overrides the status requested by the guardian.
type ApprovePaymentRequest struct {
	Status *models.PaymentStatus `json:"status" validate:"omitempty,oneof=PARTIAL COMPLETED"`
}

// ReviewResult is returned by approve and reject actions.
type ReviewResult struct {
	Payment             models.Payment `json:"payment"`
	AccessCode          *string        `json:"access_code,omitempty"`
	Notified            bool           `json:"notified"`
	NotificationWarning string         `json:"notification_warning,omitempty"`
	RolledBack          bool           `json:"rolled_back"`
}

// ProofLink is a signed download link for a payment proof.
type ProofLink struct {
	models.PaymentProof
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PaymentHistory is a payment together with its audit trail.
type PaymentHistory struct {
	Payment models.Payment      `json:"payment"`
	Entries []models.AuditEntry `json:"entries"`
}
