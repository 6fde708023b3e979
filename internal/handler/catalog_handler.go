package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/dto"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type catalogService interface {
	AssignmentSummary(ctx context.Context, id string) (*dto.AssignmentSummary, error)
	ListAssignments(ctx context.Context, grade string) ([]dto.AssignmentSummary, error)
	Plans(ctx context.Context, level string) ([]models.Plan, error)
	FlushPlans(ctx context.Context) (int, error)
}

// CatalogHandler exposes plans and class group capacity.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListAssignments godoc
// @Summary List class groups with seat availability
// @Tags Catalog
// @Produce json
// @Param grade query string false "Grade, e.g. 3° Sec"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *CatalogHandler) ListAssignments(c *gin.Context) {
	list, err := h.catalog.ListAssignments(c.Request.Context(), c.Query("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// GetAssignment godoc
// @Summary Class group detail
// @Tags Catalog
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *CatalogHandler) GetAssignment(c *gin.Context) {
	summary, err := h.catalog.AssignmentSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Plans godoc
// @Summary Active plans with courses
// @Tags Catalog
// @Produce json
// @Param level query string false "PRIMARIA or SECUNDARIA"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *CatalogHandler) Plans(c *gin.Context) {
	plans, err := h.catalog.Plans(c.Request.Context(), c.Query("level"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// FlushCache godoc
// @Summary Drop cached plan listings
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/catalog/cache [delete]
func (h *CatalogHandler) FlushCache(c *gin.Context) {
	removed, err := h.catalog.FlushPlans(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
