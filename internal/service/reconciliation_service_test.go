package service

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

type reconFixture struct {
	svc     *ReconciliationService
	store   *fakeStore
	cleanup *fakeCleanup
	mock    sqlmock.Sqlmock
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	store := newFakeStore()
	cleanup := &fakeCleanup{}
	svc := NewReconciliationService(
		tx,
		fakePayments{store},
		fakeEnrollments{store},
		fakeRegistrations{store},
		fakeSeats{store},
		fakeStudents{store},
		fakeGuardians{store},
		cleanup,
		nil,
		zap.NewNop(),
	)
	return &reconFixture{svc: svc, store: store, cleanup: cleanup, mock: mock}
}

func stepNames(report *models.ReconciliationReport) []string {
	names := make([]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		names = append(names, s.Step)
	}
	return names
}

func TestOnPaymentCreatedWithoutAssignmentSkipsReservation(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	enrollment := store.seedEnrollment(true, nil)
	payment := store.seedPayment(enrollment.ID, 100, models.PaymentStatusPending, models.PaymentStatusCompleted)

	report := svc.OnPaymentCreated(context.Background(), payment.ID)

	require.Len(t, report.Steps, 1)
	assert.Equal(t, "reserve_seat", report.Steps[0].Step)
	assert.True(t, report.Steps[0].Skipped)
	assert.NoError(t, report.Err())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOnPaymentCreatedIsIdempotentForHeldSeat(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	store.addAssignment("group-1", "plan-1", "3° Sec", 1)
	enrollment := store.seedEnrollment(true, strPtr("group-1"))
	payment := store.seedPayment(enrollment.ID, 100, models.PaymentStatusPending, models.PaymentStatusCompleted)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report := svc.OnPaymentCreated(context.Background(), payment.ID)

	assert.NoError(t, report.Err())
	assert.Equal(t, 1, store.occupied("group-1"))
	assert.Equal(t, models.PaymentStatusPending, store.payments[payment.ID].Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOnPaymentCreatedAttachesFreeSeat(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	store.addAssignment("group-1", "plan-1", "3° Sec", 2)
	enrollment := store.seedEnrollment(true, strPtr("group-1"))
	reg := store.registrationFor(enrollment.ID)
	delete(store.attached, reg.ID)
	payment := store.seedPayment(enrollment.ID, 100, models.PaymentStatusPending, models.PaymentStatusCompleted)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report := svc.OnPaymentCreated(context.Background(), payment.ID)

	assert.NoError(t, report.Err())
	assert.True(t, store.attached[reg.ID]["group-1"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOnPaymentCreatedFullGroupRejectsAndRollsBack(t *testing.T) {
	f := newReconFixture(t)
	svc, store, cleanup := f.svc, f.store, f.cleanup
	store.addAssignment("group-1", "plan-1", "3° Sec", 1)
	store.seedEnrollment(false, strPtr("group-1"))

	late := store.seedEnrollment(true, strPtr("group-1"))
	delete(store.attached, store.registrationFor(late.ID).ID)
	payment := store.seedPayment(late.ID, 100, models.PaymentStatusPending, models.PaymentStatusCompleted, "2025/03/late.png")
	student := store.students[late.StudentID]

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	report := svc.OnPaymentCreated(context.Background(), payment.ID)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "reserve_seat", failed[0].Step)
	assert.Contains(t, stepNames(report), "force_reject_payment")
	assert.Contains(t, stepNames(report), "delete_guardian")

	assert.NotContains(t, store.enrollments, late.ID)
	assert.NotContains(t, store.payments, payment.ID)
	assert.NotContains(t, store.students, student.ID)
	assert.NotContains(t, store.guardians, *student.GuardianID)
	assert.Nil(t, store.registrationFor(late.ID))
	assert.Equal(t, []string{"2025/03/late.png"}, cleanup.paths)
	assert.Equal(t, 1, store.occupied("group-1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOnPaymentStatusChangedApprovedConfirmsAndActivates(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	enrollment := store.seedEnrollment(true, nil)
	store.seedPayment(enrollment.ID, 80.5, models.PaymentStatusRejected, models.PaymentStatusCompleted)
	payment := store.seedPayment(enrollment.ID, 120.25, models.PaymentStatusPartial, models.PaymentStatusPartial)

	report := svc.OnPaymentStatusChanged(context.Background(), payment.ID)
	require.NoError(t, report.Err())

	got := store.enrollments[enrollment.ID]
	assert.False(t, got.Provisional)
	assert.Equal(t, models.EnrollmentStatusConfirmed, got.Status)
	assert.Equal(t, models.EnrollmentPaymentPartial, got.PaymentStatus)

	reg := store.registrationFor(enrollment.ID)
	require.NotNil(t, reg)
	assert.Equal(t, models.RegistrationStatusActive, reg.Status)
	assert.InDelta(t, 120.25, reg.ReferenceAmount, 0.001)
}

func TestOnPaymentStatusChangedApprovedCreatesMissingRegistration(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	enrollment := store.seedEnrollment(false, nil)
	delete(store.registrations, store.registrationFor(enrollment.ID).ID)
	payment := store.seedPayment(enrollment.ID, 300, models.PaymentStatusCompleted, models.PaymentStatusCompleted)

	report := svc.OnPaymentStatusChanged(context.Background(), payment.ID)
	require.NoError(t, report.Err())

	reg := store.registrationFor(enrollment.ID)
	require.NotNil(t, reg)
	assert.Equal(t, models.RegistrationStatusActive, reg.Status)
	assert.Equal(t, models.EnrollmentPaymentTotal, store.enrollments[enrollment.ID].PaymentStatus)
}

func TestOnPaymentStatusChangedRejectedConfirmedOnlyRecomputes(t *testing.T) {
	f := newReconFixture(t)
	svc, store, cleanup := f.svc, f.store, f.cleanup
	enrollment := store.seedEnrollment(false, nil)
	store.seedPayment(enrollment.ID, 50, models.PaymentStatusPartial, models.PaymentStatusPartial)
	rejected := store.seedPayment(enrollment.ID, 60, models.PaymentStatusRejected, models.PaymentStatusCompleted, "2025/03/keep.png")

	report := svc.OnPaymentStatusChanged(context.Background(), rejected.ID)
	require.NoError(t, report.Err())

	assert.Contains(t, store.enrollments, enrollment.ID)
	assert.Equal(t, models.EnrollmentPaymentPartial, store.enrollments[enrollment.ID].PaymentStatus)
	assert.InDelta(t, 50, store.registrationFor(enrollment.ID).ReferenceAmount, 0.001)
	assert.Empty(t, cleanup.paths)
}

func TestRollbackKeepsSharedGuardianAndStudent(t *testing.T) {
	f := newReconFixture(t)
	svc, store := f.svc, f.store
	first := store.seedEnrollment(false, nil)
	student := store.students[first.StudentID]

	second := &models.Enrollment{ID: "enrollment-extra", StudentID: student.ID, PlanID: "plan-2", Provisional: true}
	store.enrollments[second.ID] = second
	payment := store.seedPayment(second.ID, 40, models.PaymentStatusRejected, models.PaymentStatusCompleted)

	report := svc.OnPaymentStatusChanged(context.Background(), payment.ID)
	require.NoError(t, report.Err())

	assert.NotContains(t, store.enrollments, second.ID)
	assert.Contains(t, store.students, student.ID)
	assert.Contains(t, store.guardians, *student.GuardianID)
	for _, step := range report.Steps {
		if step.Step == "delete_student" || step.Step == "delete_guardian" {
			assert.True(t, step.Skipped, step.Step)
		}
	}
}

func TestRollbackContinuesAfterFailedStep(t *testing.T) {
	f := newReconFixture(t)
	svc, store, cleanup := f.svc, f.store, f.cleanup
	enrollment := store.seedEnrollment(true, nil)
	payment := store.seedPayment(enrollment.ID, 40, models.PaymentStatusRejected, models.PaymentStatusCompleted, "2025/03/a.png")
	store.fail["registrations.Delete"] = errors.New("connection reset")

	report := svc.OnPaymentStatusChanged(context.Background(), payment.ID)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "delete_registration", failed[0].Step)
	assert.Error(t, report.Err())

	assert.NotContains(t, store.enrollments, enrollment.ID)
	assert.Equal(t, []string{"2025/03/a.png"}, cleanup.paths)
	assert.Equal(t, []string{
		"collect_proof_files",
		"detach_assignment",
		"delete_registration",
		"delete_enrollment",
		"delete_student",
		"delete_guardian",
		"remove_proof_files",
	}, stepNames(report))
}

func TestOnPaymentStatusChangedMissingPayment(t *testing.T) {
	svc := newReconFixture(t).svc

	report := svc.OnPaymentStatusChanged(context.Background(), "missing")

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "load_payment", failed[0].Step)
}

func TestAggregatePaymentStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []models.PaymentStatus
		want     models.EnrollmentPaymentStatus
	}{
		{name: "no payments", want: models.EnrollmentPaymentPending},
		{name: "only pending and rejected", statuses: []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusRejected}, want: models.EnrollmentPaymentPending},
		{name: "partial", statuses: []models.PaymentStatus{models.PaymentStatusPartial, models.PaymentStatusPending}, want: models.EnrollmentPaymentPartial},
		{name: "completed wins", statuses: []models.PaymentStatus{models.PaymentStatusPartial, models.PaymentStatusCompleted}, want: models.EnrollmentPaymentTotal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := make([]models.Payment, 0, len(tc.statuses))
			for _, s := range tc.statuses {
				payments = append(payments, models.Payment{Status: s, Amount: 10})
			}
			assert.Equal(t, tc.want, AggregatePaymentStatus(payments))
		})
	}
}

func TestReferenceAmountSumsApprovedOnly(t *testing.T) {
	payments := []models.Payment{
		{Status: models.PaymentStatusPartial, Amount: 100.1},
		{Status: models.PaymentStatusCompleted, Amount: 50.2},
		{Status: models.PaymentStatusRejected, Amount: 999},
		{Status: models.PaymentStatusPending, Amount: 10},
	}
	assert.InDelta(t, 150.3, ReferenceAmount(payments), 0.001)
}
