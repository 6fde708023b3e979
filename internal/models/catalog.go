package models

import "time"

// PlanLevel groups plans by school level.
type PlanLevel string

// Supported plan levels.
const (
	PlanLevelPrimary   PlanLevel = "PRIMARIA"
	PlanLevelSecondary PlanLevel = "SECUNDARIA"
)

// IsValid reports whether l is a known level.
func (l PlanLevel) IsValid() bool {
	return l == PlanLevelPrimary || l == PlanLevelSecondary
}

// Course is a subject offered inside a plan.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Plan is a bundle of courses a student enrolls into.
type Plan struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Level       PlanLevel `db:"level" json:"level"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Courses     []Course  `db:"-" json:"courses,omitempty"`
}

// Teacher teaches one or more class-group assignments.
type Teacher struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Specialty string `db:"specialty" json:"specialty"`
}

// ClassGroupAssignment binds a plan to a room, a weekly schedule, a grade and a
// fixed seat capacity. Occupancy is the number of registrations attached to it.
type ClassGroupAssignment struct {
	ID         string     `db:"id" json:"id"`
	PlanID     string     `db:"plan_id" json:"plan_id"`
	RoomID     string     `db:"room_id" json:"room_id"`
	ScheduleID string     `db:"schedule_id" json:"schedule_id"`
	Grade      string     `db:"grade" json:"grade"`
	Capacity   int        `db:"capacity" json:"capacity"`
	Price      float64    `db:"price" json:"price"`
	StartsOn   *time.Time `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn     *time.Time `db:"ends_on" json:"ends_on,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail enriches an assignment with names and live occupancy.
type AssignmentDetail struct {
	ClassGroupAssignment
	PlanName     string `db:"plan_name" json:"plan_name"`
	RoomName     string `db:"room_name" json:"room_name"`
	ScheduleName string `db:"schedule_name" json:"schedule_name"`
	StartTime    string `db:"start_time" json:"start_time"`
	EndTime      string `db:"end_time" json:"end_time"`
	Occupied     int    `db:"occupied" json:"occupied"`
}

// ScheduleDay is one weekday of a schedule.
type ScheduleDay struct {
	ScheduleID string `db:"schedule_id" json:"schedule_id"`
	Day        string `db:"day" json:"day"`
	Position   int    `db:"position" json:"position"`
}

// AssignmentTeacher links a teacher to an assignment.
type AssignmentTeacher struct {
	AssignmentID string `db:"assignment_id" json:"assignment_id"`
	Teacher
}

// PlanCourse links a course to a plan.
type PlanCourse struct {
	PlanID string `db:"plan_id" json:"plan_id"`
	Course
}
