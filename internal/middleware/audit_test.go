package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
)

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func auditRouter(recorder *recordingAudit, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	staff := r.Group("/admin", JWT(stubValidator{claims: &models.JWTClaims{UserID: "u-9", Role: models.RoleAdmin}}))
	staff.DELETE("/things/:id", Audit(recorder, nil, "THING_DELETE", "things"), func(c *gin.Context) {
		c.Status(status)
	})
	return r
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &recordingAudit{}
	r := auditRouter(recorder, http.StatusNoContent)

	req := httptest.NewRequest(http.MethodDelete, "/admin/things/t-1?reason=stale", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("User-Agent", "staff-console")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, "THING_DELETE", entry.Action)
	assert.Equal(t, "things", entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-9", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "t-1", *entry.ResourceID)
	assert.Equal(t, "staff-console", entry.UserAgent)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.NewValues, &details))
	assert.Equal(t, "/admin/things/:id", details["path"])
	assert.Equal(t, "reason=stale", details["query"])
}

func TestAuditSkipsFailuresAndSwallowsWriteErrors(t *testing.T) {
	recorder := &recordingAudit{}
	r := auditRouter(recorder, http.StatusBadRequest)
	req := httptest.NewRequest(http.MethodDelete, "/admin/things/t-1", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, recorder.logs)

	failing := &recordingAudit{err: errors.New("db down")}
	r = auditRouter(failing, http.StatusOK)
	req = httptest.NewRequest(http.MethodDelete, "/admin/things/t-1", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, failing.logs, 1)
}
