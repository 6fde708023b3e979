package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

func TestPaymentRepositoryCreateStartsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO payment_proofs").WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{EnrollmentID: "enr-1", Amount: 100, Method: models.PaymentMethodYape, Status: models.PaymentStatusCompleted}
	require.NoError(t, repo.Create(context.Background(), nil, payment))
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PaymentStatusCompleted, payment.RequestedStatus)

	proof := &models.PaymentProof{PaymentID: payment.ID, FilePath: "proofs/a.pdf", ContentType: "application/pdf", SizeBytes: 10}
	require.NoError(t, repo.CreateProof(context.Background(), nil, proof))
	assert.NotEmpty(t, proof.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET status = $2")).
		WithArgs("pay-x", models.PaymentStatusRejected, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, "pay-x", models.PaymentStatusRejected, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByEnrollment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "amount", "method", "status", "requested_status", "reviewed_by", "reviewed_at", "created_at", "updated_at"}).
		AddRow("pay-2", "enr-1", 50.0, models.PaymentMethodPlin, models.PaymentStatusPending, models.PaymentStatusCompleted, nil, nil, now, now).
		AddRow("pay-1", "enr-1", 100.0, models.PaymentMethodTransfer, models.PaymentStatusPartial, models.PaymentStatusPartial, "u-1", now, now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE enrollment_id = $1 ORDER BY created_at DESC")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	payments, err := repo.ListByEnrollment(context.Background(), nil, "enr-1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "pay-2", payments[0].ID)
	require.NotNil(t, payments[1].ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListFiltersAndCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "amount", "method", "status", "requested_status", "reviewed_by", "reviewed_at", "created_at", "updated_at",
		"student_name", "guardian_name", "grade", "plan_name", "access_code", "proof_count"}).
		AddRow("pay-1", "enr-1", 120.0, models.PaymentMethodYape, models.PaymentStatusPending, models.PaymentStatusCompleted, nil, nil, now, now,
			"Luis Quispe", "Rosa Quispe", "3° Sec", "Plan Anual", nil, 2)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND pm.status = $1 AND (LOWER(s.first_name || ' ' || s.last_name) LIKE $2")).
		WithArgs(models.PaymentStatusPending, "%quispe%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments pm")).
		WithArgs(models.PaymentStatusPending, "%quispe%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	items, total, err := repo.List(context.Background(), models.PaymentFilter{Status: models.PaymentStatusPending, Search: " Quispe ", Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Luis Quispe", items[0].StudentName)
	assert.Equal(t, 2, items[0].ProofCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
