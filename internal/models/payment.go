package models

import "time"

// PaymentStatus tracks review of a single payment.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPartial   PaymentStatus = "PARTIAL"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusRejected  PaymentStatus = "REJECTED"
)

// Approved reports whether the status counts towards the enrollment.
func (s PaymentStatus) Approved() bool {
	return s == PaymentStatusPartial || s == PaymentStatusCompleted
}

// PaymentMethod is how the guardian paid.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodYape     PaymentMethod = "YAPE"
	PaymentMethodPlin     PaymentMethod = "PLIN"
)

// IsValid reports whether the method is accepted.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodYape, PaymentMethodPlin:
		return true
	}
	return false
}

// Payment is a guardian-submitted payment awaiting or after review.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	EnrollmentID    string        `db:"enrollment_id" json:"enrollment_id"`
	Amount          float64       `db:"amount" json:"amount"`
	Method          PaymentMethod `db:"method" json:"method"`
	Status          PaymentStatus `db:"status" json:"status"`
	RequestedStatus PaymentStatus `db:"requested_status" json:"requested_status"`
	ReviewedBy      *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentProof is an uploaded receipt attached to a payment.
type PaymentProof struct {
	ID           string    `db:"id" json:"id"`
	PaymentID    string    `db:"payment_id" json:"payment_id"`
	FilePath     string    `db:"file_path" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	ContentType  string    `db:"content_type" json:"content_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PaymentFilter narrows the staff review queue.
type PaymentFilter struct {
	Status   PaymentStatus
	Method   PaymentMethod
	Search   string
	Page     int
	PageSize int
}

// PaymentQueueItem is a payment with the names staff need to review it.
type PaymentQueueItem struct {
	Payment
	StudentName  string  `db:"student_name" json:"student_name"`
	GuardianName *string `db:"guardian_name" json:"guardian_name,omitempty"`
	Grade        string  `db:"grade" json:"grade"`
	PlanName     string  `db:"plan_name" json:"plan_name"`
	AccessCode   *string `db:"access_code" json:"access_code,omitempty"`
	ProofCount   int     `db:"proof_count" json:"proof_count"`
}
