package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

const paymentColumns = `id, enrollment_id, amount, method, status, requested_status, reviewed_by, reviewed_at, created_at, updated_at`

const proofColumns = `id, payment_id, file_path, original_name, content_type, size_bytes, created_at`

// PaymentRepository is the payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a payment. New payments always start PENDING.
func (r *PaymentRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.Status = models.PaymentStatusPending
	if payment.RequestedStatus == "" {
		payment.RequestedStatus = models.PaymentStatusCompleted
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	const query = `INSERT INTO payments (id, enrollment_id, amount, method, status, requested_status, reviewed_by, reviewed_at, created_at, updated_at)
VALUES (:id, :enrollment_id, :amount, :method, :status, :requested_status, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// CreateProof inserts a proof file record.
func (r *PaymentRepository) CreateProof(ctx context.Context, exec sqlx.ExtContext, proof *models.PaymentProof) error {
	if proof.ID == "" {
		proof.ID = uuid.NewString()
	}
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_proofs (id, payment_id, file_path, original_name, content_type, size_bytes, created_at)
VALUES (:id, :payment_id, :file_path, :original_name, :content_type, :size_bytes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, proof); err != nil {
		return fmt.Errorf("create payment proof: %w", err)
	}
	return nil
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var payment models.Payment
	if err := sqlx.GetContext(ctx, r.exec(exec), &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// UpdateStatus stores a review decision or a forced rejection.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.PaymentStatus, reviewedBy *string) error {
	now := time.Now().UTC()
	const query = `UPDATE payments SET status = $2, reviewed_by = COALESCE($3, reviewed_by), reviewed_at = $4, updated_at = $4 WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id, status, reviewedBy, now)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("payment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByEnrollment returns an enrollment's payments, newest first.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE enrollment_id = $1 ORDER BY created_at DESC`
	var payments []models.Payment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment payments: %w", err)
	}
	return payments, nil
}

// List returns the review queue page matching filter and the total match count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, int, error) {
	base := `FROM payments pm
JOIN enrollments e ON e.id = pm.enrollment_id
JOIN students s ON s.id = e.student_id
JOIN plans p ON p.id = e.plan_id
LEFT JOIN guardians g ON g.id = s.guardian_id`
	var (
		args       []interface{}
		conditions = []string{"1=1"}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("pm.status = $%d", len(args)))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		conditions = append(conditions, fmt.Sprintf("pm.method = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%[1]d OR LOWER(g.dni) LIKE $%[1]d OR LOWER(e.access_code) LIKE $%[1]d)", len(args)))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT pm.id, pm.enrollment_id, pm.amount, pm.method, pm.status, pm.requested_status, pm.reviewed_by, pm.reviewed_at, pm.created_at, pm.updated_at,
s.first_name || ' ' || s.last_name AS student_name, CASE WHEN g.id IS NULL THEN NULL ELSE g.first_name || ' ' || g.last_name END AS guardian_name,
s.grade, p.name AS plan_name, e.access_code,
(SELECT COUNT(*) FROM payment_proofs pp WHERE pp.payment_id = pm.id) AS proof_count
%s ORDER BY pm.created_at DESC LIMIT %d OFFSET %d`, base, size, (page-1)*size)

	var items []models.PaymentQueueItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return items, total, nil
}

// ListProofs returns the proofs of a payment.
func (r *PaymentRepository) ListProofs(ctx context.Context, paymentID string) ([]models.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE payment_id = $1 ORDER BY created_at`
	var proofs []models.PaymentProof
	if err := r.db.SelectContext(ctx, &proofs, query, paymentID); err != nil {
		return nil, fmt.Errorf("list payment proofs: %w", err)
	}
	return proofs, nil
}

// ListProofsByEnrollment returns every proof stored for an enrollment.
func (r *PaymentRepository) ListProofsByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) ([]models.PaymentProof, error) {
	const query = `SELECT pp.id, pp.payment_id, pp.file_path, pp.original_name, pp.content_type, pp.size_bytes, pp.created_at
FROM payment_proofs pp
JOIN payments p ON p.id = pp.payment_id
WHERE p.enrollment_id = $1`
	var proofs []models.PaymentProof
	if err := sqlx.SelectContext(ctx, r.exec(exec), &proofs, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment proofs: %w", err)
	}
	return proofs, nil
}

// FindProof returns a single proof.
func (r *PaymentRepository) FindProof(ctx context.Context, id string) (*models.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE id = $1`
	var proof models.PaymentProof
	if err := r.db.GetContext(ctx, &proof, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment proof: %w", err)
	}
	return &proof, nil
}
