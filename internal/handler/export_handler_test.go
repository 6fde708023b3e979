package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

type fakeExporter struct {
	filter models.RegistrationExportFilter
	format models.ExportFormat
}

func (f *fakeExporter) Registrations(_ context.Context, filter models.RegistrationExportFilter, format models.ExportFormat) (*service.ExportFile, error) {
	f.filter, f.format = filter, format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{
		Filename:    "matriculas_ceama_20260211_1000.csv",
		ContentType: "text/csv; charset=utf-8",
		Content:     []byte("Nombre del estudiante\n"),
		Rows:        7,
	}, nil
}

func exportRouter(srv *fakeExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/registrations/export", NewExportHandler(srv).Registrations)
	return r
}

func TestExportRegistrations(t *testing.T) {
	srv := &fakeExporter{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/registrations/export?status=ACTIVE&assignmentId=asg-1&q=ana", nil)
	exportRouter(srv).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="matriculas_ceama_20260211_1000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "7", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "Nombre del estudiante\n", w.Body.String())
	assert.Equal(t, models.RegistrationExportFilter{Status: "ACTIVE", AssignmentID: "asg-1", Search: "ana"}, srv.filter)
	assert.Empty(t, srv.format)
}

func TestExportRegistrationsBadFormat(t *testing.T) {
	w := httptest.NewRecorder()
	exportRouter(&fakeExporter{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/registrations/export?format=xlsx", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
