package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// roundAmount rounds a currency amount to cents.
func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
