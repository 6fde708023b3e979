package dto

import "time"

// AssignmentSummary reports a class group together with its seat occupancy.
type AssignmentSummary struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	PlanName  string     `json:"plan_name"`
	Grade     string     `json:"grade"`
	Room      string     `json:"room"`
	Schedule  string     `json:"schedule"`
	Days      []string   `json:"days"`
	TimeRange string     `json:"time_range"`
	Teachers  []string   `json:"teachers"`
	Price     float64    `json:"price"`
	StartsOn  *time.Time `json:"starts_on,omitempty"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	Occupied  int        `json:"occupied"`
	Capacity  int        `json:"capacity"`
	Available int        `json:"available"`
	Full      bool       `json:"full"`
}
