package models

import "time"

// StagedKind tags which half of a registration a StagedRecord holds.
type StagedKind string

// Staged record kinds.
const (
	StagedKindEnrollment StagedKind = "ENROLLMENT"
	StagedKindGuardian   StagedKind = "GUARDIAN"
)

// StagedEnrollment is the student & plan selection captured in step one.
type StagedEnrollment struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Age          int     `json:"age"`
	Grade        string  `json:"grade"`
	School       string  `json:"school"`
	PlanID       *string `json:"plan_id,omitempty"`
	AssignmentID *string `json:"assignment_id,omitempty"`
}

// StagedGuardian is the guardian data captured in step two.
type StagedGuardian struct {
	DNI       string  `json:"dni"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email,omitempty"`
	Address   string  `json:"address"`
}

// StagedRecord is the session-held, not yet persisted half of a registration.
// Exactly one of Enrollment or Guardian is set, matching Kind.
type StagedRecord struct {
	Kind       StagedKind        `json:"kind"`
	CreatedAt  time.Time         `json:"created_at"`
	TTL        time.Duration     `json:"ttl"`
	Enrollment *StagedEnrollment `json:"enrollment,omitempty"`
	Guardian   *StagedGuardian   `json:"guardian,omitempty"`
}

// Expired reports whether the record is past its TTL. A record with no creation
// time is always expired; a record exactly TTL old is still valid.
func (r StagedRecord) Expired(now time.Time) bool {
	if r.CreatedAt.IsZero() {
		return true
	}
	return now.Sub(r.CreatedAt) > r.TTL
}

// StagedRegistration is a resolved pair of staged records.
type StagedRegistration struct {
	Enrollment StagedEnrollment `json:"enrollment"`
	Guardian   *StagedGuardian  `json:"guardian,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Valid reports whether the payload matches Kind.
func (r StagedRecord) Valid() bool {
	switch r.Kind {
	case StagedKindEnrollment:
		return r.Enrollment != nil
	case StagedKindGuardian:
		return r.Guardian != nil
	default:
		return false
	}
}
