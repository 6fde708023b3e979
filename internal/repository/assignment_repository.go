package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

const assignmentColumns = `id, plan_id, room_id, schedule_id, grade, capacity, price, starts_on, ends_on, created_at, updated_at`

const assignmentDetailSelect = `SELECT a.id, a.plan_id, a.room_id, a.schedule_id, a.grade, a.capacity, a.price, a.starts_on, a.ends_on, a.created_at, a.updated_at,
p.name AS plan_name, r.name AS room_name, sc.name AS schedule_name,
TO_CHAR(sc.start_time, 'HH24:MI') AS start_time, TO_CHAR(sc.end_time, 'HH24:MI') AS end_time,
(SELECT COUNT(DISTINCT ra.registration_id) FROM registration_assignments ra WHERE ra.assignment_id = a.id) AS occupied
FROM class_group_assignments a
JOIN plans p ON p.id = a.plan_id
JOIN rooms r ON r.id = a.room_id
JOIN schedules sc ON sc.id = a.schedule_id`

// AssignmentRepository provides access to class-group assignments and their occupancy.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new instance of AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns an assignment without locking it.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.ClassGroupAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM class_group_assignments WHERE id = $1`
	var assignment models.ClassGroupAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// LockForUpdate loads the assignment holding its row lock until the transaction ends.
// Capacity checks for the same assignment are serialized behind this lock.
func (r *AssignmentRepository) LockForUpdate(ctx context.Context, tx sqlx.ExtContext, id string) (*models.ClassGroupAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM class_group_assignments WHERE id = $1 FOR UPDATE`
	var assignment models.ClassGroupAssignment
	if err := sqlx.GetContext(ctx, r.exec(tx), &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock assignment: %w", err)
	}
	return &assignment, nil
}

// CountOccupied returns the number of distinct registrations holding a seat.
func (r *AssignmentRepository) CountOccupied(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	const query = `SELECT COUNT(DISTINCT registration_id) FROM registration_assignments WHERE assignment_id = $1`
	var total int
	if err := sqlx.GetContext(ctx, r.exec(exec), &total, query, id); err != nil {
		return 0, fmt.Errorf("count assignment occupancy: %w", err)
	}
	return total, nil
}

// FindDetail returns an assignment with names and occupancy.
func (r *AssignmentRepository) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := assignmentDetailSelect + ` WHERE a.id = $1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment detail: %w", err)
	}
	return &detail, nil
}

// ListDetails returns assignments, optionally filtered by grade.
func (r *AssignmentRepository) ListDetails(ctx context.Context, grade string) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect
	var args []interface{}
	if grade != "" {
		query += ` WHERE a.grade = $1`
		args = append(args, grade)
	}
	query += ` ORDER BY sc.start_time, r.name`

	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment details: %w", err)
	}
	return details, nil
}

// ListTeachers returns the teachers of the given assignments.
func (r *AssignmentRepository) ListTeachers(ctx context.Context, assignmentIDs []string) ([]models.AssignmentTeacher, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT at.assignment_id, t.id, t.first_name, t.last_name, t.specialty
FROM assignment_teachers at
JOIN teachers t ON t.id = at.teacher_id
WHERE at.assignment_id = ANY($1)
ORDER BY t.last_name, t.first_name`
	var teachers []models.AssignmentTeacher
	if err := r.db.SelectContext(ctx, &teachers, query, pq.Array(assignmentIDs)); err != nil {
		return nil, fmt.Errorf("list assignment teachers: %w", err)
	}
	return teachers, nil
}

// ListScheduleDays returns the weekdays of the given schedules.
func (r *AssignmentRepository) ListScheduleDays(ctx context.Context, scheduleIDs []string) ([]models.ScheduleDay, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT schedule_id, day, position FROM schedule_days WHERE schedule_id = ANY($1) ORDER BY position`
	var days []models.ScheduleDay
	if err := r.db.SelectContext(ctx, &days, query, pq.Array(scheduleIDs)); err != nil {
		return nil, fmt.Errorf("list schedule days: %w", err)
	}
	return days, nil
}
