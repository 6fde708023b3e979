package service

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const (
	accessCodeLength   = 10
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessCodeAttempts = 5
)

type accessCodeStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error)
	SetAccessCodeIfEmpty(ctx context.Context, id, code string) (bool, error)
}

// accessCodeIssuer assigns each enrollment one tracking code, once.
type accessCodeIssuer struct {
	store    accessCodeStore
	generate func() (string, error)
}

func newAccessCodeIssuer(store accessCodeStore) *accessCodeIssuer {
	return &accessCodeIssuer{store: store, generate: generateAccessCode}
}

// Ensure returns the enrollment's code, creating one when absent.
func (i *accessCodeIssuer) Ensure(ctx context.Context, enrollmentID string) (string, error) {
	for attempt := 0; attempt < accessCodeAttempts; attempt++ {
		enrollment, err := i.store.FindByID(ctx, nil, enrollmentID)
		if err != nil {
			return "", err
		}
		if enrollment.AccessCode != nil && *enrollment.AccessCode != "" {
			return *enrollment.AccessCode, nil
		}
		code, err := i.generate()
		if err != nil {
			return "", err
		}
		written, err := i.store.SetAccessCodeIfEmpty(ctx, enrollmentID, code)
		if err != nil {
			if appErrors.IsCode(err, appErrors.ErrDuplicate.Code) {
				continue
			}
			return "", err
		}
		if written {
			return code, nil
		}
		// A concurrent approval wrote first; the next pass reads its code.
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique access code")
}

func generateAccessCode() (string, error) {
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	buf := make([]byte, accessCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
