package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const (
	stagedPlanID       = "7d5c1f0e-8a61-4f53-9b6e-2c0c4f9a1a01"
	stagedAssignmentID = "a1f4c2d3-5b6e-4c7d-8e9f-0a1b2c3d4e5f"
)

type stagingCatalog struct {
	plans       map[string]*models.Plan
	assignments map[string]*models.ClassGroupAssignment
	guardians   map[string]*models.Guardian
}

type stagingPlans struct{ c *stagingCatalog }

func (p stagingPlans) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	if plan, ok := p.c.plans[id]; ok {
		return plan, nil
	}
	return nil, sql.ErrNoRows
}

type stagingAssignments struct{ c *stagingCatalog }

func (a stagingAssignments) FindByID(ctx context.Context, id string) (*models.ClassGroupAssignment, error) {
	if assignment, ok := a.c.assignments[id]; ok {
		return assignment, nil
	}
	return nil, sql.ErrNoRows
}

type stagingGuardians struct{ c *stagingCatalog }

func (g stagingGuardians) FindByPhone(ctx context.Context, phone string) (*models.Guardian, error) {
	if guardian, ok := g.c.guardians[phone]; ok {
		return guardian, nil
	}
	return nil, sql.ErrNoRows
}

func newStagingFixture(t *testing.T) (*StagingService, *stagingCatalog, *time.Time) {
	t.Helper()
	catalog := &stagingCatalog{
		plans: map[string]*models.Plan{
			stagedPlanID: {ID: stagedPlanID, Name: "Plan Anual", Active: true},
		},
		assignments: map[string]*models.ClassGroupAssignment{
			stagedAssignmentID: {ID: stagedAssignmentID, PlanID: stagedPlanID, Grade: "3° Sec", Capacity: 20},
		},
		guardians: map[string]*models.Guardian{},
	}
	svc := NewStagingService(repository.NewMemoryStagingRepository(), stagingPlans{catalog}, stagingAssignments{catalog}, stagingGuardians{catalog}, nil, nil, nil, time.Hour)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, catalog, &now
}

func studentRequest() dto.StageRegistrationRequest {
	return dto.StageRegistrationRequest{
		FirstName:    " Luis ",
		LastName:     "Quispe",
		Age:          14,
		Grade:        "3° Sec",
		PlanID:       strPtr(stagedPlanID),
		AssignmentID: strPtr(stagedAssignmentID),
	}
}

func guardianRequest() dto.StageGuardianRequest {
	return dto.StageGuardianRequest{
		DNI:       "12345678",
		FirstName: "Rosa",
		LastName:  "Quispe",
		Phone:     "987654321",
		Email:     strPtr("rosa@example.com"),
	}
}

func TestStagingResolveReturnsBothHalves(t *testing.T) {
	svc, _, _ := newStagingFixture(t)
	ctx := context.Background()

	rec, err := svc.StageRegistration(ctx, "sess-1", studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "Luis", rec.Enrollment.FirstName)

	staged, err := svc.Resolve(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, staged, "guardian not staged yet")

	_, err = svc.StageGuardian(ctx, "sess-1", guardianRequest())
	require.NoError(t, err)

	staged, err = svc.Resolve(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, stagedAssignmentID, *staged.Enrollment.AssignmentID)
	assert.Equal(t, "12345678", staged.Guardian.DNI)

	require.NoError(t, svc.Clear(ctx, "sess-1"))
	staged, err = svc.Resolve(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, staged)
}

func TestStagingExpiresAfterTTL(t *testing.T) {
	svc, _, now := newStagingFixture(t)
	ctx := context.Background()

	_, err := svc.StageRegistration(ctx, "sess-1", studentRequest())
	require.NoError(t, err)
	_, err = svc.StageGuardian(ctx, "sess-1", guardianRequest())
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	staged, err := svc.Resolve(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, staged, "a record is still valid at exactly its TTL")

	*now = now.Add(time.Second)
	_, err = svc.Resolve(ctx, "sess-1")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrStagedDataExpired.Code))

	staged, err = svc.Resolve(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, staged, "expired session is cleared")
}

func TestStageGuardianRequiresStudentFirst(t *testing.T) {
	svc, _, _ := newStagingFixture(t)

	_, err := svc.StageGuardian(context.Background(), "sess-1", guardianRequest())
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestStageGuardianRejectsStudentName(t *testing.T) {
	svc, _, _ := newStagingFixture(t)
	ctx := context.Background()
	_, err := svc.StageRegistration(ctx, "sess-1", studentRequest())
	require.NoError(t, err)

	req := guardianRequest()
	req.FirstName = "luis"
	req.LastName = " QUISPE "
	_, err = svc.StageGuardian(ctx, "sess-1", req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different person")
}

func TestStageGuardianPhoneOwnedByAnotherGuardian(t *testing.T) {
	svc, catalog, _ := newStagingFixture(t)
	ctx := context.Background()
	_, err := svc.StageRegistration(ctx, "sess-1", studentRequest())
	require.NoError(t, err)

	catalog.guardians["987654321"] = &models.Guardian{ID: "g-9", DNI: "87654321", Phone: "987654321"}
	_, err = svc.StageGuardian(ctx, "sess-1", guardianRequest())
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrDuplicate.Code))

	catalog.guardians["987654321"].DNI = "12345678"
	_, err = svc.StageGuardian(ctx, "sess-1", guardianRequest())
	assert.NoError(t, err, "the same guardian may reuse their phone")
}

func TestStageRegistrationValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.StageRegistrationRequest)
	}{
		{"grade not offered", func(r *dto.StageRegistrationRequest) { r.Grade = "6° Sec"; r.AssignmentID = nil }},
		{"age too low", func(r *dto.StageRegistrationRequest) { r.Age = 3 }},
		{"unknown plan", func(r *dto.StageRegistrationRequest) {
			r.PlanID = strPtr("0b0b0b0b-0000-4000-8000-000000000000")
			r.AssignmentID = nil
		}},
		{"group of another grade", func(r *dto.StageRegistrationRequest) { r.Grade = "2° Sec" }},
		{"group of another plan", func(r *dto.StageRegistrationRequest) {
			r.PlanID = strPtr("0c0c0c0c-0000-4000-8000-000000000000")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, catalog, _ := newStagingFixture(t)
			catalog.plans["0c0c0c0c-0000-4000-8000-000000000000"] = &models.Plan{ID: "0c0c0c0c-0000-4000-8000-000000000000", Active: true}
			req := studentRequest()
			tc.mutate(&req)
			_, err := svc.StageRegistration(context.Background(), "sess-1", req)
			require.Error(t, err)
			assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
		})
	}
}

func TestStagingPreview(t *testing.T) {
	svc, _, now := newStagingFixture(t)
	ctx := context.Background()

	_, err := svc.Preview(ctx, "sess-1")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.StageRegistration(ctx, "sess-1", studentRequest())
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, preview.Guardian)
	require.NotNil(t, preview.Plan)
	assert.Equal(t, "Plan Anual", preview.Plan.Name)
	assert.Equal(t, now.Add(time.Hour).Format(time.RFC3339), preview.ExpiresAt)
}
