package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/middleware"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

type fakeReviews struct {
	filter    models.PaymentFilter
	approveID string
	approve   dto.ApprovePaymentRequest
	actor     *models.JWTClaims
	rejected  string
}

func (f *fakeReviews) List(_ context.Context, filter models.PaymentFilter) ([]models.PaymentQueueItem, *models.Pagination, error) {
	f.filter = filter
	return []models.PaymentQueueItem{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 0}, nil
}

func (f *fakeReviews) Approve(_ context.Context, id string, req dto.ApprovePaymentRequest, actor *models.JWTClaims) (*dto.ReviewResult, error) {
	f.approveID = id
	f.approve = req
	f.actor = actor
	return &dto.ReviewResult{Payment: models.Payment{ID: id, Status: models.PaymentStatusCompleted}, Notified: true}, nil
}

func (f *fakeReviews) Reject(_ context.Context, id string, actor *models.JWTClaims) (*dto.ReviewResult, error) {
	f.rejected = id
	f.actor = actor
	return &dto.ReviewResult{Payment: models.Payment{ID: id, Status: models.PaymentStatusRejected}}, nil
}

func (f *fakeReviews) History(_ context.Context, id string) (*dto.PaymentHistory, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	actor := "Rosa Quispe"
	return &dto.PaymentHistory{
		Payment: models.Payment{ID: id, Status: models.PaymentStatusCompleted},
		Entries: []models.AuditEntry{{AuditLog: models.AuditLog{Action: models.AuditActionPaymentApprove}, ActorName: &actor}},
	}, nil
}

type fakeProofAccess struct {
	path  string
	token string
}

func (f *fakeProofAccess) Links(_ context.Context, paymentID string, _ *models.JWTClaims) ([]dto.ProofLink, error) {
	return []dto.ProofLink{{DownloadURL: "/api/v1/admin/proofs/download?token=" + paymentID}}, nil
}

func (f *fakeProofAccess) Download(_ context.Context, token string, _ *models.JWTClaims) (*service.ProofDownload, error) {
	f.token = token
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return &service.ProofDownload{File: file, Filename: "voucher.pdf", MimeType: "application/pdf", SizeBytes: info.Size()}, nil
}

var reviewer = &models.JWTClaims{UserID: "staff-1", Role: models.RoleAdmin, Email: "admin@ceama.edu.pe"}

func reviewRouter(reviews *fakeReviews, proofs *fakeProofAccess, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	h := NewReviewHandler(reviews, proofs)
	r.GET("/admin/payments", h.List)
	r.POST("/admin/payments/:id/approve", h.Approve)
	r.POST("/admin/payments/:id/reject", h.Reject)
	r.GET("/admin/payments/:id/history", h.History)
	r.GET("/admin/payments/:id/proofs", h.ProofLinks)
	r.GET("/admin/proofs/download", h.DownloadProof)
	return r
}

func TestReviewListParsesQuery(t *testing.T) {
	reviews := &fakeReviews{}
	r := reviewRouter(reviews, &fakeProofAccess{}, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/payments?status=pending&method=YAPE&search=+Quispe+&page=2&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PaymentStatus("pending"), reviews.filter.Status)
	assert.Equal(t, models.PaymentMethodYape, reviews.filter.Method)
	assert.Equal(t, "Quispe", reviews.filter.Search)
	assert.Equal(t, 2, reviews.filter.Page)
	assert.Equal(t, 5, reviews.filter.PageSize)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
}

func TestReviewApproveAllowsEmptyBody(t *testing.T) {
	reviews := &fakeReviews{}
	r := reviewRouter(reviews, &fakeProofAccess{}, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/pay-1/approve", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pay-1", reviews.approveID)
	assert.Nil(t, reviews.approve.Status)
	assert.Equal(t, reviewer, reviews.actor)
}

func TestReviewApproveNormalisesStatusOverride(t *testing.T) {
	reviews := &fakeReviews{}
	r := reviewRouter(reviews, &fakeProofAccess{}, reviewer)

	req := httptest.NewRequest(http.MethodPost, "/admin/payments/pay-1/approve", strings.NewReader(`{"status":"partial"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, reviews.approve.Status)
	assert.Equal(t, models.PaymentStatusPartial, *reviews.approve.Status)
}

func TestReviewActionsRequireStaff(t *testing.T) {
	reviews := &fakeReviews{}
	r := reviewRouter(reviews, &fakeProofAccess{}, nil)

	for _, path := range []string{"/admin/payments/pay-1/approve", "/admin/payments/pay-1/reject"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Empty(t, reviews.approveID)
	assert.Empty(t, reviews.rejected)
}

func TestReviewReject(t *testing.T) {
	reviews := &fakeReviews{}
	r := reviewRouter(reviews, &fakeProofAccess{}, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/pay-9/reject", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pay-9", reviews.rejected)
}

func TestReviewDownloadProofStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proof.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600))
	proofs := &fakeProofAccess{path: path}
	r := reviewRouter(&fakeReviews{}, proofs, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/proofs/download?token=abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", proofs.token)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="voucher.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 body", rec.Body.String())
}

func TestReviewDownloadProofRequiresToken(t *testing.T) {
	proofs := &fakeProofAccess{}
	r := reviewRouter(&fakeReviews{}, proofs, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/proofs/download", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, proofs.token)
}

func TestReviewHistory(t *testing.T) {
	r := reviewRouter(&fakeReviews{}, &fakeProofAccess{}, reviewer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/payments/pay-3/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history dto.PaymentHistory
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &history))
	assert.Equal(t, "pay-3", history.Payment.ID)
	require.Len(t, history.Entries, 1)
	require.NotNil(t, history.Entries[0].ActorName)
	assert.Equal(t, "Rosa Quispe", *history.Entries[0].ActorName)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/payments/missing/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
