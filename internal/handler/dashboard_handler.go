package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ceama-enrollment-api/internal/middleware"
	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	"github.com/noah-isme/ceama-enrollment-api/pkg/response"
)

type dashboardService interface {
	Collections(ctx context.Context) (*models.CollectionsSummary, bool, error)
}

// DashboardHandler serves the staff money overview.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Collections godoc
// @Summary Collected and pending payment totals by grade and class group
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/collections [get]
func (h *DashboardHandler) Collections(c *gin.Context) {
	summary, cacheHit, err := h.service.Collections(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
