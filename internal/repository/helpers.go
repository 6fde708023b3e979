package repository

import (
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const pqUniqueViolation = "23505"

var duplicateMessages = map[string]string{
	"guardians_dni_key":               "a guardian with this DNI already exists",
	"guardians_phone_key":             "this phone number is already registered to another guardian",
	"enrollments_access_code_key":     "access code already in use",
	"registrations_enrollment_id_key": "enrollment already has a registration",
}

// duplicateError converts a unique violation into a typed duplicate error.
// It returns nil when err is not a unique violation.
func duplicateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return nil
	}
	msg, ok := duplicateMessages[pqErr.Constraint]
	if !ok {
		msg = "duplicate value"
	}
	return appErrors.WrapAs(err, appErrors.ErrDuplicate, msg)
}
