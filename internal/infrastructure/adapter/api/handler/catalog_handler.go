package handler

import (
	"net/http"

	"github.com/rica-io/payment-engine/internal/domain/entity"
	"github.com/rica-io/payment-engine/internal/infrastructure/adapter/api/dto"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only credit package and plan catalogs
type CatalogHandler struct {
	catalog *entity.Catalog
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(catalog *entity.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListPackages handles the GET /catalog/packages endpoint
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	packages := h.catalog.Packages()
	resp := make([]dto.PackageResponse, 0, len(packages))
	for _, pkg := range packages {
		resp = append(resp, dto.NewPackageResponse(pkg))
	}
	c.JSON(http.StatusOK, resp)
}

// ListPlans handles the GET /catalog/plans endpoint
func (h *CatalogHandler) ListPlans(c *gin.Context) {
	plans := h.catalog.Plans()
	resp := make([]dto.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		resp = append(resp, dto.NewPlanResponse(plan))
	}
	c.JSON(http.StatusOK, resp)
}
