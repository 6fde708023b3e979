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

const guardianColumns = `id, dni, first_name, last_name, phone, email, address, created_at, updated_at`

// GuardianRepository provides database access for guardians.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository creates a new instance of GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

func (r *GuardianRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByDNI returns a guardian by tax id. The row is locked when exec is a transaction.
func (r *GuardianRepository) FindByDNI(ctx context.Context, exec sqlx.ExtContext, dni string) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE dni = $1`
	if _, isTx := exec.(*sqlx.Tx); isTx {
		query += ` FOR UPDATE`
	}
	var guardian models.Guardian
	if err := sqlx.GetContext(ctx, r.exec(exec), &guardian, query, dni); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by dni: %w", err)
	}
	return &guardian, nil
}

// FindByPhone returns the guardian owning a phone number.
func (r *GuardianRepository) FindByPhone(ctx context.Context, phone string) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE phone = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, phone); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by phone: %w", err)
	}
	return &guardian, nil
}

// FindByID returns a guardian by identifier.
func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by id: %w", err)
	}
	return &guardian, nil
}

// Create inserts a guardian.
func (r *GuardianRepository) Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now

	const query = `INSERT INTO guardians (id, dni, first_name, last_name, phone, email, address, created_at, updated_at)
VALUES (:id, :dni, :first_name, :last_name, :phone, :email, :address, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, guardian); err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// UpdateContact refreshes the mutable contact fields of a guardian.
func (r *GuardianRepository) UpdateContact(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	guardian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE guardians SET first_name = :first_name, last_name = :last_name, phone = :phone, email = :email, address = :address, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, guardian); err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update guardian contact: %w", err)
	}
	return nil
}

// CountStudents returns how many students reference the guardian.
func (r *GuardianRepository) CountStudents(ctx context.Context, exec sqlx.ExtContext, guardianID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE guardian_id = $1`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, guardianID); err != nil {
		return 0, fmt.Errorf("count guardian students: %w", err)
	}
	return total, nil
}

// Delete removes a guardian.
func (r *GuardianRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM guardians WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete guardian: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("guardian rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
