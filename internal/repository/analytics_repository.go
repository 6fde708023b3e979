package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

// maxExportRows bounds a single registration export.
const maxExportRows = 5000

const approvedPaymentStatuses = `('PARTIAL', 'COMPLETED')`

// AnalyticsRepository exposes read-only aggregate queries for staff reports.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CollectionTotals sums approved and pending payment amounts.
func (r *AnalyticsRepository) CollectionTotals(ctx context.Context) (*models.CollectionTotals, error) {
	query := `SELECT
        COALESCE(SUM(amount) FILTER (WHERE status IN ` + approvedPaymentStatuses + `), 0) AS collected,
        COUNT(*) FILTER (WHERE status IN ` + approvedPaymentStatuses + `) AS collected_count,
        COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0) AS pending,
        COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count
        FROM payments`
	var totals models.CollectionTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("query collection totals: %w", err)
	}
	return &totals, nil
}

// CollectionsByGrade groups approved payments by the student's grade.
func (r *AnalyticsRepository) CollectionsByGrade(ctx context.Context) ([]models.CollectionBucket, error) {
	query := `SELECT s.grade AS key, s.grade AS label, SUM(pm.amount) AS total, COUNT(pm.id) AS count
        FROM payments pm
        JOIN enrollments e ON e.id = pm.enrollment_id
        JOIN students s ON s.id = e.student_id
        WHERE pm.status IN ` + approvedPaymentStatuses + `
        GROUP BY s.grade
        ORDER BY total DESC`
	var buckets []models.CollectionBucket
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("query collections by grade: %w", err)
	}
	return buckets, nil
}

// CollectionsByAssignment groups approved payments by class group; enrollments
// without one share an empty key.
func (r *AnalyticsRepository) CollectionsByAssignment(ctx context.Context) ([]models.CollectionBucket, error) {
	query := `SELECT COALESCE(a.id::text, '') AS key,
        COALESCE(p.name || ' - ' || a.grade, '') AS label,
        SUM(pm.amount) AS total, COUNT(pm.id) AS count
        FROM payments pm
        JOIN enrollments e ON e.id = pm.enrollment_id
        LEFT JOIN class_group_assignments a ON a.id = e.assignment_id
        LEFT JOIN plans p ON p.id = a.plan_id
        WHERE pm.status IN ` + approvedPaymentStatuses + `
        GROUP BY a.id, p.name, a.grade
        ORDER BY total DESC`
	var buckets []models.CollectionBucket
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("query collections by assignment: %w", err)
	}
	return buckets, nil
}

// RegistrationExport lists registrations with their class groups, newest first.
func (r *AnalyticsRepository) RegistrationExport(ctx context.Context, filter models.RegistrationExportFilter) ([]models.RegistrationExportRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT s.last_name || ', ' || s.first_name AS student_name, s.grade, r.status, r.reference_amount, r.created_at,
        COALESCE(STRING_AGG(p.name || ' / ' || rm.name || ' / ' || sc.name, '; ' ORDER BY p.name), '') AS assignments
        FROM registrations r
        JOIN students s ON s.id = r.student_id
        LEFT JOIN registration_assignments ra ON ra.registration_id = r.id
        LEFT JOIN class_group_assignments a ON a.id = ra.assignment_id
        LEFT JOIN plans p ON p.id = a.plan_id
        LEFT JOIN rooms rm ON rm.id = a.room_id
        LEFT JOIN schedules sc ON sc.id = a.schedule_id
        WHERE 1=1`)
	var args []interface{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND r.status = $%d", len(args)))
	}
	if filter.AssignmentID != "" {
		args = append(args, filter.AssignmentID)
		builder.WriteString(fmt.Sprintf(" AND EXISTS (SELECT 1 FROM registration_assignments x WHERE x.registration_id = r.id AND x.assignment_id = $%d)", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		builder.WriteString(fmt.Sprintf(" AND LOWER(s.first_name || ' ' || s.last_name) LIKE $%d", len(args)))
	}
	builder.WriteString(fmt.Sprintf(" GROUP BY r.id, s.last_name, s.first_name, s.grade ORDER BY r.created_at DESC LIMIT %d", maxExportRows))

	var rows []models.RegistrationExportRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query registration export: %w", err)
	}
	return rows, nil
}
