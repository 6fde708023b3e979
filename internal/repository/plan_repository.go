package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

// PlanRepository provides read access to plans and their courses.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// FindByID returns a plan by identifier.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	const query = `SELECT id, name, level, description, active, created_at FROM plans WHERE id = $1`
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return &plan, nil
}

// FirstActive returns the oldest active plan, used when nothing else selects one.
func (r *PlanRepository) FirstActive(ctx context.Context) (*models.Plan, error) {
	const query = `SELECT id, name, level, description, active, created_at FROM plans WHERE active = TRUE ORDER BY created_at, name LIMIT 1`
	var plan models.Plan
	if err := r.db.GetContext(ctx, &plan, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find first plan: %w", err)
	}
	return &plan, nil
}

// ListActiveByLevel returns active plans, optionally filtered by level.
func (r *PlanRepository) ListActiveByLevel(ctx context.Context, level models.PlanLevel) ([]models.Plan, error) {
	query := `SELECT id, name, level, description, active, created_at FROM plans WHERE active = TRUE`
	var args []interface{}
	if level != "" {
		query += ` AND level = $1`
		args = append(args, level)
	}
	query += ` ORDER BY name`

	var plans []models.Plan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// ListCourses returns the courses of the given plans.
func (r *PlanRepository) ListCourses(ctx context.Context, planIDs []string) ([]models.PlanCourse, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT pc.plan_id, c.id, c.name, c.description, c.created_at
FROM plan_courses pc
JOIN courses c ON c.id = pc.course_id
WHERE pc.plan_id = ANY($1)
ORDER BY c.name`
	var courses []models.PlanCourse
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(planIDs)); err != nil {
		return nil, fmt.Errorf("list plan courses: %w", err)
	}
	return courses, nil
}
