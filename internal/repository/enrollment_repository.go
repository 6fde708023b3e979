package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

const enrollmentColumns = `id, student_id, plan_id, assignment_id, status, payment_status, provisional, access_code, created_at, updated_at`

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.plan_id, e.assignment_id, e.status, e.payment_status, e.provisional, e.access_code, e.created_at, e.updated_at,
s.first_name AS student_first_name, s.last_name AS student_last_name, s.grade, p.name AS plan_name,
g.id AS guardian_id, CASE WHEN g.id IS NULL THEN NULL ELSE g.first_name || ' ' || g.last_name END AS guardian_name, g.email AS guardian_email
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN plans p ON p.id = e.plan_id
LEFT JOIN guardians g ON g.id = s.guardian_id`

// EnrollmentRepository provides database access for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.EnrollmentPaymentPending
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, student_id, plan_id, assignment_id, status, payment_status, provisional, access_code, created_at, updated_at)
VALUES (:id, :student_id, :plan_id, :assignment_id, :status, :payment_status, :provisional, :access_code, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindDetailByID returns enrollment details including student, plan and guardian.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}

// FindDetailByAccessCode returns the enrollment holding the given access code.
func (r *EnrollmentRepository) FindDetailByAccessCode(ctx context.Context, code string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.access_code = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by access code: %w", err)
	}
	return &detail, nil
}

// FindLatestByGuardianEmail returns the newest enrollment of the guardian owning the email.
func (r *EnrollmentRepository) FindLatestByGuardianEmail(ctx context.Context, email string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE LOWER(g.email) = LOWER($1) ORDER BY e.created_at DESC LIMIT 1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest enrollment by guardian email: %w", err)
	}
	return &detail, nil
}

// SetAssignment records the selected class-group assignment.
func (r *EnrollmentRepository) SetAssignment(ctx context.Context, exec sqlx.ExtContext, id string, assignmentID *string) error {
	const query = `UPDATE enrollments SET assignment_id = $2, updated_at = $3 WHERE id = $1`
	return r.update(ctx, exec, "set enrollment assignment", query, id, assignmentID, time.Now().UTC())
}

// Confirm clears the provisional flag and marks the enrollment confirmed.
func (r *EnrollmentRepository) Confirm(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE enrollments SET provisional = FALSE, status = $2, updated_at = $3 WHERE id = $1`
	return r.update(ctx, exec, "confirm enrollment", query, id, models.EnrollmentStatusConfirmed, time.Now().UTC())
}

// UpdatePaymentStatus stores the aggregate payment status.
func (r *EnrollmentRepository) UpdatePaymentStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.EnrollmentPaymentStatus) error {
	const query = `UPDATE enrollments SET payment_status = $2, updated_at = $3 WHERE id = $1`
	return r.update(ctx, exec, "update enrollment payment status", query, id, status, time.Now().UTC())
}

// SetAccessCodeIfEmpty assigns code only when the enrollment has none yet.
// It reports whether the code was written.
func (r *EnrollmentRepository) SetAccessCodeIfEmpty(ctx context.Context, id, code string) (bool, error) {
	const query = `UPDATE enrollments SET access_code = $2, updated_at = $3 WHERE id = $1 AND access_code IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, code, time.Now().UTC())
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return false, dup
		}
		return false, fmt.Errorf("set enrollment access code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enrollment access code rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an enrollment; payments and proofs cascade.
func (r *EnrollmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *EnrollmentRepository) update(ctx context.Context, exec sqlx.ExtContext, op, query string, args ...interface{}) error {
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
