package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type exportService interface {
	Registrations(ctx context.Context, filter models.RegistrationExportFilter, format models.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams staff spreadsheets.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Registrations godoc
// @Summary Export registrations as CSV or PDF
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "ACTIVE or INACTIVE"
// @Param assignmentId query string false "Class group ID"
// @Param q query string false "Student name search"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/registrations/export [get]
func (h *ExportHandler) Registrations(c *gin.Context) {
	filter := models.RegistrationExportFilter{
		Status:       models.RegistrationStatus(c.Query("status")),
		AssignmentID: c.Query("assignmentId"),
		Search:       c.Query("q"),
	}
	file, err := h.service.Registrations(c.Request.Context(), filter, models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(file.Rows))
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
