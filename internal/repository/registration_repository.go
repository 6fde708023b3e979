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

// RegistrationRepository manages registrations and the seats they hold.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new instance of RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a registration.
func (r *RegistrationRepository) Create(ctx context.Context, exec sqlx.ExtContext, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusInactive
	}
	now := time.Now().UTC()
	if registration.CreatedAt.IsZero() {
		registration.CreatedAt = now
	}
	registration.UpdatedAt = now

	const query = `INSERT INTO registrations (id, enrollment_id, student_id, status, reference_amount, created_at, updated_at)
VALUES (:id, :enrollment_id, :student_id, :status, :reference_amount, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, registration); err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByEnrollment returns the registration of an enrollment.
func (r *RegistrationRepository) FindByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) (*models.Registration, error) {
	const query = `SELECT id, enrollment_id, student_id, status, reference_amount, created_at, updated_at FROM registrations WHERE enrollment_id = $1`
	var registration models.Registration
	if err := sqlx.GetContext(ctx, r.exec(exec), &registration, query, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &registration, nil
}

// UpdateStatus stores activation and the reference amount.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RegistrationStatus, referenceAmount float64) error {
	const query = `UPDATE registrations SET status = $2, reference_amount = $3, updated_at = $4 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, status, referenceAmount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("registration rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a registration; held seats cascade.
func (r *RegistrationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM registrations WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

// HasAssignment reports whether the registration already holds a seat in the assignment.
func (r *RegistrationRepository) HasAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM registration_assignments WHERE registration_id = $1 AND assignment_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, registrationID, assignmentID); err != nil {
		return false, fmt.Errorf("check registration assignment: %w", err)
	}
	return exists, nil
}

// AttachAssignment reserves a seat. Attaching twice is a no-op.
func (r *RegistrationRepository) AttachAssignment(ctx context.Context, exec sqlx.ExtContext, registrationID, assignmentID string) error {
	const query = `INSERT INTO registration_assignments (registration_id, assignment_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, registrationID, assignmentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach registration assignment: %w", err)
	}
	return nil
}

// DetachAssignments releases every seat held by the registration.
func (r *RegistrationRepository) DetachAssignments(ctx context.Context, exec sqlx.ExtContext, registrationID string) error {
	const query = `DELETE FROM registration_assignments WHERE registration_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, registrationID); err != nil {
		return fmt.Errorf("detach registration assignments: %w", err)
	}
	return nil
}
