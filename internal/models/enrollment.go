package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusConfirmed EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// EnrollmentPaymentStatus is the aggregate of an enrollment's payments.
type EnrollmentPaymentStatus string

// Aggregate payment statuses.
const (
	EnrollmentPaymentPending EnrollmentPaymentStatus = "PENDING"
	EnrollmentPaymentPartial EnrollmentPaymentStatus = "PARTIAL"
	EnrollmentPaymentTotal   EnrollmentPaymentStatus = "TOTAL"
)

// Enrollment is a student's application to a plan. It stays provisional until
// its first payment is approved; the access code is issued on approval.
type Enrollment struct {
	ID            string                  `db:"id" json:"id"`
	StudentID     string                  `db:"student_id" json:"student_id"`
	PlanID        string                  `db:"plan_id" json:"plan_id"`
	AssignmentID  *string                 `db:"assignment_id" json:"assignment_id,omitempty"`
	Status        EnrollmentStatus        `db:"status" json:"status"`
	PaymentStatus EnrollmentPaymentStatus `db:"payment_status" json:"payment_status"`
	Provisional   bool                    `db:"provisional" json:"provisional"`
	AccessCode    *string                 `db:"access_code" json:"access_code,omitempty"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student, guardian and plan info.
type EnrollmentDetail struct {
	Enrollment
	StudentFirstName string  `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string  `db:"student_last_name" json:"student_last_name"`
	Grade            string  `db:"grade" json:"grade"`
	PlanName         string  `db:"plan_name" json:"plan_name"`
	GuardianID       *string `db:"guardian_id" json:"guardian_id,omitempty"`
	GuardianName     *string `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianEmail    *string `db:"guardian_email" json:"guardian_email,omitempty"`
}

// StudentName joins the student's first and last name.
func (d EnrollmentDetail) StudentName() string {
	return Student{FirstName: d.StudentFirstName, LastName: d.StudentLastName}.FullName()
}
