package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/catalog"
	"github.com/storefront/backend/internal/domain"
)

// CatalogSource serves catalog snapshots and runs refreshes on demand
type CatalogSource interface {
	Current(ctx context.Context) (*domain.CatalogResult, error)
	Trigger(ctx context.Context) *domain.CatalogResult
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog CatalogSource
}

// NewHandler creates a new HTTP handler
func NewHandler(source CatalogSource) *Handler {
	return &Handler{catalog: source}
}

// CatalogResponse is the catalog snapshot as returned to the storefront
type CatalogResponse struct {
	*domain.CatalogResult
	StoreStatus string `json:"storeStatus"`
	Degraded    bool   `json:"degraded"`
}

// QuoteRequest is the body of POST /api/v1/quote
type QuoteRequest struct {
	SizeID   string   `json:"sizeId" binding:"required"`
	AddonIDs []string `json:"addonIds"`
}

// QuoteResponse pairs a price quote with the store status it was made under
type QuoteResponse struct {
	*domain.Quote
	StoreStatus string `json:"storeStatus"`
	CycleID     string `json:"cycleId"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "storefront-backend",
		"version": "1.0.0",
	})
}

// GetCatalog returns the latest catalog snapshot, loading one if none exists yet
func (h *Handler) GetCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog service not configured"})
		return
	}

	result, err := h.catalog.Current(c.Request.Context())
	if err != nil {
		log.Printf("[HTTP] catalog lookup failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}

	c.JSON(http.StatusOK, newCatalogResponse(result))
}

// RefreshCatalog runs a load cycle now and returns its result
func (h *Handler) RefreshCatalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog service not configured"})
		return
	}

	result := h.catalog.Trigger(c.Request.Context())
	if result == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}

	c.JSON(http.StatusOK, newCatalogResponse(result))
}

// Quote prices a size plus add-ons against the latest catalog
func (h *Handler) Quote(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog service not configured"})
		return
	}

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: sizeId is required"})
		return
	}

	result, err := h.catalog.Current(c.Request.Context())
	if err != nil {
		log.Printf("[HTTP] catalog lookup failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return
	}

	quote, err := catalog.Quote(result.Catalog, req.SizeID, req.AddonIDs)
	if err != nil {
		c.JSON(quoteErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Quote:       quote,
		StoreStatus: result.StoreStatus(),
		CycleID:     result.CycleID,
	})
}

func newCatalogResponse(result *domain.CatalogResult) CatalogResponse {
	return CatalogResponse{
		CatalogResult: result,
		StoreStatus:   result.StoreStatus(),
		Degraded:      result.Degraded(),
	}
}

func quoteErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrItemUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
