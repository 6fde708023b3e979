package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

type fakeTracking struct {
	code       string
	form       dto.RegularizePaymentForm
	uploads    int
	resendTo   string
	lookupErr  error
	receiptErr error
}

func (f *fakeTracking) Lookup(_ context.Context, code string) (*dto.TrackingView, error) {
	f.code = code
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return &dto.TrackingView{AccessCode: code, Status: models.EnrollmentStatusPending}, nil
}

func (f *fakeTracking) Regularize(_ context.Context, code string, form dto.RegularizePaymentForm, uploads []service.ProofUpload) (*dto.PaymentSubmission, error) {
	f.code = code
	f.form = form
	f.uploads = len(uploads)
	return &dto.PaymentSubmission{Payment: models.Payment{ID: "pay-2"}}, nil
}

func (f *fakeTracking) ResendCode(_ context.Context, req dto.ResendCodeRequest) error {
	f.resendTo = req.Email
	return nil
}

func (f *fakeTracking) Receipt(_ context.Context, code string) (*service.Receipt, error) {
	f.code = code
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	return &service.Receipt{Filename: "constancia-" + code + ".pdf", Content: []byte("%PDF-1.3")}, nil
}

func trackingRouter(srv *fakeTracking) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTrackingHandler(srv)
	r.GET("/tracking/:code", h.Lookup)
	r.POST("/tracking/:code/payments", h.Regularize)
	r.POST("/tracking-resend", h.ResendCode)
	r.GET("/tracking/:code/receipt", h.Receipt)
	return r
}

func TestTrackingLookup(t *testing.T) {
	srv := &fakeTracking{}
	r := trackingRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/AB12CD34EF", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AB12CD34EF", srv.code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	srv.lookupErr = appErrors.Clone(appErrors.ErrNotFound, "access code not found")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackingRegularizeForwardsUploads(t *testing.T) {
	srv := &fakeTracking{}
	r := trackingRouter(srv)

	req := multipartRequest(t, "/tracking/AB12CD34EF/payments",
		map[string]string{"amount": "50", "method": "PLIN"},
		map[string][]byte{"one.png": []byte("png"), "two.pdf": []byte("pdf")})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 50.0, srv.form.Amount)
	assert.Equal(t, "PLIN", srv.form.Method)
	assert.Equal(t, 2, srv.uploads)
}

func TestTrackingRegularizeRequiresMultipart(t *testing.T) {
	srv := &fakeTracking{}
	r := trackingRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/tracking/AB12CD34EF/payments", strings.NewReader(`{"amount":50,"method":"PLIN"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.code)
}

func TestTrackingResendCodeAccepted(t *testing.T) {
	srv := &fakeTracking{}
	r := trackingRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/tracking-resend", strings.NewReader(`{"email":"rosa@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "rosa@example.com", srv.resendTo)
}

func TestTrackingReceipt(t *testing.T) {
	srv := &fakeTracking{}
	r := trackingRouter(srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/AB12CD34EF/receipt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="constancia-AB12CD34EF.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())

	srv.receiptErr = appErrors.Clone(appErrors.ErrPreconditionFailed, "receipt is available once a payment is approved")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracking/AB12CD34EF/receipt", nil))
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
